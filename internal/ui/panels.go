// Package ui holds the open/closed state of side panels and modals, the sync badge,
// and the registry binding UI regions to handlers.
package ui

import (
	"sync"

	"github.com/rotisserie/eris"
)

// PanelID names a side panel.
type PanelID string

// Side panels. At most one is open at a time.
const (
	PanelProject PanelID = "project"
	PanelMapType PanelID = "map-type"
)

// PanelState is how one panel is drawn. While a panel is open its overlay is shown
// and its toggle button is hidden.
type PanelState struct {
	Open         bool `json:"open"`
	OverlayShown bool `json:"overlayShown"`
	ButtonHidden bool `json:"buttonHidden"`
}

// Panels tracks the two mutually exclusive side panels.
type Panels struct {
	mu    sync.Mutex
	state map[PanelID]PanelState
}

// NewPanels returns both panels closed.
func NewPanels() *Panels {
	return &Panels{state: map[PanelID]PanelState{
		PanelProject: {},
		PanelMapType: {},
	}}
}

// Open shows a panel and force-closes any other open panel.
func (p *Panels) Open(id PanelID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.state[id]; !ok {
		return eris.Errorf("ui: unknown panel %q", id)
	}
	for other := range p.state {
		if other != id {
			p.state[other] = PanelState{}
		}
	}
	p.state[id] = PanelState{Open: true, OverlayShown: true, ButtonHidden: true}
	return nil
}

// Close hides a panel. Closing a closed panel does nothing.
func (p *Panels) Close(id PanelID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.state[id]; !ok {
		return eris.Errorf("ui: unknown panel %q", id)
	}
	p.state[id] = PanelState{}
	return nil
}

// CloseAll hides every panel.
func (p *Panels) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.state {
		p.state[id] = PanelState{}
	}
}

// IsOpen reports whether a panel is open.
func (p *Panels) IsOpen(id PanelID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state[id].Open
}

// State returns a copy of every panel's state.
func (p *Panels) State() map[PanelID]PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[PanelID]PanelState, len(p.state))
	for id, s := range p.state {
		out[id] = s
	}
	return out
}

// ModalID names a modal dialog.
type ModalID string

// Modals.
const (
	ModalAddSite  ModalID = "add-site"
	ModalEditSite ModalID = "edit-site"
	ModalKMLSite  ModalID = "kml-site"
	ModalMapType  ModalID = "map-type"
)

// ModalState is one modal's visibility and the data it shows.
type ModalState struct {
	Open bool        `json:"open"`
	Data interface{} `json:"data,omitempty"`
}

// Modals tracks modal dialogs. Modals are independent of each other.
type Modals struct {
	mu    sync.Mutex
	state map[ModalID]ModalState
}

// NewModals returns every modal closed.
func NewModals() *Modals {
	return &Modals{state: map[ModalID]ModalState{
		ModalAddSite:  {},
		ModalEditSite: {},
		ModalKMLSite:  {},
		ModalMapType:  {},
	}}
}

// Open shows a modal with data.
func (m *Modals) Open(id ModalID, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state[id]; !ok {
		return eris.Errorf("ui: unknown modal %q", id)
	}
	m.state[id] = ModalState{Open: true, Data: data}
	return nil
}

// Close hides a modal and drops its data.
func (m *Modals) Close(id ModalID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state[id]; ok {
		m.state[id] = ModalState{}
	}
}

// IsOpen reports whether a modal is open.
func (m *Modals) IsOpen(id ModalID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state[id].Open
}

// Data returns what an open modal shows.
func (m *Modals) Data(id ModalID) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state[id]
	return s.Data, s.Open
}

// State returns a copy of every modal's state.
func (m *Modals) State() map[ModalID]ModalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ModalID]ModalState, len(m.state))
	for id, s := range m.state {
		out[id] = s
	}
	return out
}
