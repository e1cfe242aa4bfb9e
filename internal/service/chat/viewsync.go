package chat

import "github.com/reconecta/chat/backend/internal/model/chat"

// Viewport is whatever displays the conversation: a terminal pane, a
// websocket client, an SSE response.
type Viewport interface {
	Render(messages []chat.Message)
	ScrollToBottom()
}

// ViewSynchronizer keeps a viewport scrolled to the newest message.
type ViewSynchronizer struct {
	view Viewport
}

// NewViewSynchronizer returns a synchronizer for view. A nil view is allowed
// and does nothing.
func NewViewSynchronizer(view Viewport) *ViewSynchronizer {
	return &ViewSynchronizer{view: view}
}

// Attach subscribes to store. Every publish is rendered and then scrolled to
// the bottom. The returned func detaches.
func (s *ViewSynchronizer) Attach(store *chat.Store) (detach func()) {
	return store.Subscribe(s.sync)
}

func (s *ViewSynchronizer) sync(messages []chat.Message) {
	if s == nil || s.view == nil {
		return
	}
	s.view.Render(messages)
	s.view.ScrollToBottom()
}
