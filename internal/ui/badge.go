package ui

import (
	"sync"
	"time"
)

// Badge variants.
const (
	BadgeSuccess = "success"
	BadgeError   = "error"
)

// Badge messages.
const (
	MessageSynced     = "동기화됨"
	MessageSyncFailed = "동기화 실패"
)

// BadgeState is what the sync badge currently shows.
type BadgeState struct {
	Visible bool   `json:"visible"`
	Message string `json:"message"`
	Variant string `json:"variant"`
}

// Badge is the sync indicator. Success auto-hides after a delay; errors stay until
// dismissed. Every show cancels a pending auto-hide.
type Badge struct {
	mu         sync.Mutex
	state      BadgeState
	timer      *time.Timer
	gen        uint64
	successFor time.Duration
	onChange   func(BadgeState)
}

// NewBadge creates a hidden badge. onChange, if set, is called after every change
// outside the badge's lock.
func NewBadge(successFor time.Duration, onChange func(BadgeState)) *Badge {
	return &Badge{successFor: successFor, onChange: onChange}
}

// ShowSuccess shows the synced message and hides it after the success delay.
func (b *Badge) ShowSuccess() {
	b.show(BadgeState{Visible: true, Message: MessageSynced, Variant: BadgeSuccess}, b.successFor)
}

// ShowError shows the sync failure message until dismissed.
func (b *Badge) ShowError() {
	b.show(BadgeState{Visible: true, Message: MessageSyncFailed, Variant: BadgeError}, 0)
}

func (b *Badge) show(s BadgeState, hideAfter time.Duration) {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.state = s
	if hideAfter > 0 {
		gen := b.gen
		b.timer = time.AfterFunc(hideAfter, func() { b.hideIf(gen) })
	}
	b.mu.Unlock()
	b.notify(s)
}

func (b *Badge) hideIf(gen uint64) {
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return
	}
	b.state.Visible = false
	s := b.state
	b.timer = nil
	b.mu.Unlock()
	b.notify(s)
}

// Dismiss hides an error badge. A success badge is left to hide on its own.
func (b *Badge) Dismiss() {
	b.mu.Lock()
	if !b.state.Visible || b.state.Variant != BadgeError {
		b.mu.Unlock()
		return
	}
	b.gen++
	b.state.Visible = false
	s := b.state
	b.mu.Unlock()
	b.notify(s)
}

// State returns what the badge shows.
func (b *Badge) State() BadgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stop cancels a pending auto-hide.
func (b *Badge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Badge) notify(s BadgeState) {
	if b.onChange != nil {
		b.onChange(s)
	}
}
