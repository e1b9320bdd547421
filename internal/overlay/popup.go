package overlay

import (
	"sync"

	"github.com/Lllllllleong/mwmap/internal/models"
)

// PopupContent is what an open popup shows.
type PopupContent struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// PopupState is a snapshot of a popup.
type PopupState struct {
	Open     bool          `json:"open"`
	Content  PopupContent  `json:"content"`
	Position models.LatLng `json:"position"`
}

// Popup is the single shared info window of a session. Opening it again moves and
// refills it rather than stacking a second one.
type Popup struct {
	mu    sync.Mutex
	state PopupState
}

// Open shows content anchored at pos, replacing whatever was shown.
func (p *Popup) Open(content PopupContent, pos models.LatLng) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = PopupState{Open: true, Content: content, Position: pos}
}

// Close hides the popup. Closing a closed popup does nothing.
func (p *Popup) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = PopupState{}
}

// IsOpen reports whether the popup is showing.
func (p *Popup) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Open
}

// State returns a snapshot of the popup.
func (p *Popup) State() PopupState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
