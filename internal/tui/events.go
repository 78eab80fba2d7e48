package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/controller"
	"github.com/muurk/imagegen/internal/endpoints"
	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/state"
)

// eventBuffer is the capacity of the bridge channel
const eventBuffer = 64

// Messages delivered through the bridge
type (
	// stateChangedMsg is one store transition
	stateChangedMsg struct {
		next, prev state.AppState
	}
	// statusChangedMsg is one connection status transition
	statusChangedMsg endpoints.StatusChange
	// noticeMsg is a notice from the endpoint manager
	noticeMsg endpoints.Notice
)

// Messages produced by commands
type (
	configLoadedMsg struct{ ok bool }
	managerReadyMsg struct{ err error }
	generateDoneMsg struct{ outcome controller.Outcome }
	changeURLDoneMsg struct {
		url string
		err error
	}
	refreshDoneMsg struct{ err error }
	imagesSavedMsg struct {
		paths []string
		err   error
	}
	flashEndMsg     struct{ seq int }
	noticeExpireMsg struct{ seq int }
)

// Bridge carries events raised on other goroutines (store subscribers,
// the connection monitor) into the Bubble Tea loop. Sends never block:
// when the buffer is full the event is dropped and logged.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}

	mu          sync.Mutex
	unsubscribe func()
	closeOnce   sync.Once
}

// NewBridge creates an open bridge
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg, eventBuffer),
		done:   make(chan struct{}),
	}
}

// StatusListener is passed to endpoints.WithStatusListener
func (b *Bridge) StatusListener() func(endpoints.StatusChange) {
	return func(c endpoints.StatusChange) { b.send(statusChangedMsg(c)) }
}

// NoticeListener is passed to endpoints.WithNoticeListener
func (b *Bridge) NoticeListener() func(endpoints.Notice) {
	return func(n endpoints.Notice) { b.send(noticeMsg(n)) }
}

// Attach subscribes the bridge to store transitions. A previous
// subscription is released.
func (b *Bridge) Attach(store *state.Store) {
	unsub := store.Subscribe(func(next, prev state.AppState) {
		b.send(stateChangedMsg{next: next, prev: prev})
	})

	b.mu.Lock()
	prev := b.unsubscribe
	b.unsubscribe = unsub
	b.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case <-b.done:
		return
	default:
	}

	select {
	case b.events <- msg:
	default:
		logging.Warn("TUI event dropped, buffer full", zap.String("type", eventName(msg)))
	}
}

// Wait returns a command that delivers the next bridged event. The model
// issues it again after handling each one.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Close unsubscribes from the store and releases any pending Wait
func (b *Bridge) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		unsub := b.unsubscribe
		b.unsubscribe = nil
		b.mu.Unlock()
		if unsub != nil {
			unsub()
		}
		close(b.done)
	})
}

func eventName(msg tea.Msg) string {
	switch msg.(type) {
	case stateChangedMsg:
		return "state"
	case statusChangedMsg:
		return "status"
	case noticeMsg:
		return "notice"
	default:
		return "unknown"
	}
}
