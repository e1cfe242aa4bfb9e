package chat

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/reconecta/chat/backend/internal/model/chat"
	"github.com/reconecta/chat/backend/internal/service/ai"
)

// EventKind tells chunk events apart from the terminal ones.
type EventKind int

const (
	EventChunk EventKind = iota
	EventDone
	EventFailed
)

// Event is what Pump yields for each step of a stream.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Pump drives stream on its own goroutine. Chunks arrive in order, followed
// by exactly one EventDone or EventFailed, then the channel closes. When ctx
// is cancelled no further events are sent and the channel closes early.
func Pump(ctx context.Context, stream ai.ChunkStream) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)
		defer stream.Close()

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				emit(Event{Kind: EventDone})
				return
			}
			if err != nil {
				emit(Event{Kind: EventFailed, Err: err})
				return
			}
			if !emit(Event{Kind: EventChunk, Text: chunk.Text}) {
				return
			}
		}
	}()

	return events
}

// StreamConsumer folds streamed chunks into one message of a store.
type StreamConsumer struct {
	store *chat.Store
}

// NewStreamConsumer returns a consumer writing into store.
func NewStreamConsumer(store *chat.Store) *StreamConsumer {
	return &StreamConsumer{store: store}
}

// Consume accumulates the chunks of stream and, after every chunk, publishes
// the store with message id set to the text so far. A missing id makes that
// publish a no-op. It returns the full text, or the partial text and the
// failure.
func (c *StreamConsumer) Consume(ctx context.Context, id string, stream ai.ChunkStream) (string, error) {
	var acc strings.Builder

	for ev := range Pump(ctx, stream) {
		switch ev.Kind {
		case EventChunk:
			acc.WriteString(ev.Text)
			c.store.Update(chat.SetText(id, acc.String()))
		case EventDone:
			return acc.String(), nil
		case EventFailed:
			return acc.String(), ev.Err
		}
	}

	if err := ctx.Err(); err != nil {
		return acc.String(), err
	}
	return acc.String(), io.ErrUnexpectedEOF
}
