package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/canusb/internal/engine"
	"github.com/tturner/canusb/internal/lawicel"
)

const bridgeBuffer = 512

// eventMsg carries one decoded or sent line into the model.
type eventMsg lawicel.Event

// stateMsg carries an engine transition into the model.
type stateMsg engine.StateChange

// Bridge forwards engine callbacks, which run on engine goroutines, into the
// bubbletea update loop. Order is preserved.
type Bridge struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewBridge creates a bridge with a buffered queue.
func NewBridge() *Bridge {
	return &Bridge{
		ch:   make(chan tea.Msg, bridgeBuffer),
		done: make(chan struct{}),
	}
}

// OnEvent is suitable for engine.Options.OnEvent.
func (b *Bridge) OnEvent(ev lawicel.Event) {
	b.push(eventMsg(ev))
}

// OnState is suitable for engine.Options.OnState.
func (b *Bridge) OnState(c engine.StateChange) {
	b.push(stateMsg(c))
}

// Close stops delivery. Later callbacks are dropped instead of blocking the engine.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) push(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

// Listen waits for the next engine message.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}
