package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reconecta/chat/backend/internal/model/chat"
)

type transcriptMsg []chat.Message

type scrollMsg struct{}

type loadingMsg bool

type turnDoneMsg struct{ err error }

// Bridge is the terminal's viewport. Publishes from the turn goroutine are
// handed to the bubbletea loop one at a time through wait.
type Bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

// NewBridge returns an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		events: make(chan tea.Msg),
		done:   make(chan struct{}),
	}
}

// Render forwards a store snapshot.
func (b *Bridge) Render(messages []chat.Message) {
	b.post(transcriptMsg(messages))
}

// ScrollToBottom asks the pane to follow the newest message.
func (b *Bridge) ScrollToBottom() {
	b.post(scrollMsg{})
}

func (b *Bridge) loading(on bool) {
	b.post(loadingMsg(on))
}

// Close releases anyone blocked posting to a program that has quit.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Bridge) post(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}
