package chat

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/reconecta/chat/backend/internal/logging"
	"github.com/reconecta/chat/backend/internal/model/chat"
	"github.com/reconecta/chat/backend/internal/service/ai"
)

// ApologyText replaces a bot reply whose turn failed.
const ApologyText = "Desculpe, encontrei um erro. Por favor, tente novamente."

// Options tunes a Controller.
type Options struct {
	// KeepPartialOnFailure appends the apology to the text streamed so far
	// instead of replacing it.
	KeepPartialOnFailure bool
	Logger               *zerolog.Logger
}

// Controller runs request/response turns against one chat session and keeps
// the store in sync with the streamed reply. It does not guard against
// overlapping SendMessage calls; callers check IsLoading first.
type Controller struct {
	store    *chat.Store
	session  *ai.SessionHandle
	consumer *StreamConsumer
	opts     Options
	logger   zerolog.Logger

	loading   atomic.Bool
	mu        sync.Mutex
	onLoading []loadingListener
	nextID    int
}

type loadingListener struct {
	id int
	fn func(bool)
}

// NewController wires a controller over store and session.
func NewController(store *chat.Store, session *ai.SessionHandle, opts Options) *Controller {
	logger := logging.Component("turn")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Controller{
		store:    store,
		session:  session,
		consumer: NewStreamConsumer(store),
		opts:     opts,
		logger:   logger,
	}
}

// Store exposes the conversation this controller writes to.
func (c *Controller) Store() *chat.Store {
	return c.store
}

// IsLoading reports whether a turn is in flight.
func (c *Controller) IsLoading() bool {
	return c.loading.Load()
}

// Session returns the handle the controller sends through.
func (c *Controller) Session() *ai.SessionHandle {
	return c.session
}

// OnLoadingChange registers fn to be told about every loading transition.
// The returned func unregisters it.
func (c *Controller) OnLoadingChange(fn func(loading bool)) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.onLoading = append(c.onLoading, loadingListener{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.onLoading {
			if l.id == id {
				c.onLoading = append(c.onLoading[:i:i], c.onLoading[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) setLoading(v bool) {
	c.loading.Store(v)

	c.mu.Lock()
	listeners := append([]loadingListener(nil), c.onLoading...)
	c.mu.Unlock()
	for _, l := range listeners {
		l.fn(v)
	}
}

// SendMessage runs one turn for text. It returns an error only when the chat
// session cannot be created; any failure of the turn itself is logged and
// shown to the user as ApologyText.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	c.setLoading(true)
	defer c.setLoading(false)

	session, err := c.session.Ensure(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("chat session unavailable, turn skipped")
		return err
	}

	user := chat.Message{ID: newID("user"), Text: text, Sender: chat.SenderUser}
	placeholder := chat.Message{ID: newID("bot"), Sender: chat.SenderBot}
	c.store.Append(user, placeholder)

	reply, err := c.stream(ctx, session, text, placeholder.ID)
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", placeholder.ID).Int("partial_len", len(reply)).Msg("turn failed")
		c.fail(placeholder.ID, reply)
		return nil
	}

	c.logger.Debug().Str("message_id", placeholder.ID).Int("reply_len", len(reply)).Msg("turn completed")
	return nil
}

func (c *Controller) stream(ctx context.Context, session ai.ChatSession, text, id string) (string, error) {
	stream, err := session.SendMessageStream(ctx, text)
	if err != nil {
		return "", err
	}
	return c.consumer.Consume(ctx, id, stream)
}

// fail swaps the placeholder for the apology, or appends the apology when
// the placeholder is gone.
func (c *Controller) fail(id, partial string) {
	c.store.Update(func(prev []chat.Message) []chat.Message {
		if c.opts.KeepPartialOnFailure && partial != "" {
			if next, ok := chat.ReplaceByID(prev, id, func(m chat.Message) chat.Message {
				return m.WithText(partial + "\n\n" + ApologyText)
			}); ok {
				return next
			}
		}

		apology := chat.Message{ID: newID("error"), Text: ApologyText, Sender: chat.SenderBot}
		if next, ok := chat.ReplaceByID(prev, id, func(chat.Message) chat.Message { return apology }); ok {
			return next
		}
		return append(prev, apology)
	})
}

// newID returns a time-ordered identifier such as "bot-0190...".
func newID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "-" + id.String()
}
