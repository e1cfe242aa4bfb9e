package ai

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/pkg/errors"

	"github.com/reconecta/chat/backend/internal/config"
	"github.com/reconecta/chat/backend/internal/model/persona"
)

// ErrSessionUnavailable is returned when no chat session could be created.
var ErrSessionUnavailable = errors.New("chat session unavailable")

// Chunk is one piece of a streamed reply.
type Chunk struct {
	Text string
}

// ChunkStream is a finite, non-restartable sequence of chunks. Recv returns
// io.EOF once the reply is complete. Implementations must unblock Recv when
// the context the stream was opened with is cancelled.
type ChunkStream interface {
	Recv() (Chunk, error)
	Close() error
}

// ChatSession is one conversational context held by the backend. The
// backend keeps the conversation history; callers send only the new text.
type ChatSession interface {
	SendMessageStream(ctx context.Context, text string) (ChunkStream, error)
}

// Backend creates chat sessions against a hosted model.
type Backend interface {
	NewChat(ctx context.Context) (ChatSession, error)
}

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(ctx context.Context, cfg config.AIConfig, p persona.Persona) (Backend, error) {
	if !cfg.Enabled() {
		return nil, errors.Errorf("credentials for provider %q are not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		b, err := NewGeminiBackend(ctx, cfg, p)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.ProviderArk:
		b, err := NewArkBackend(ctx, cfg, p)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, errors.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// SessionHandle lazily creates a single chat session and hands out the same
// one on every later call. It is never torn down.
type SessionHandle struct {
	backend Backend

	mu   sync.Mutex
	chat ChatSession
}

// NewSessionHandle returns a handle that creates its session through backend.
// A nil backend yields a handle whose Ensure always fails.
func NewSessionHandle(backend Backend) *SessionHandle {
	return &SessionHandle{backend: backend}
}

// Ensure returns the session, creating it on first use. A failed creation
// leaves the handle empty so the next call tries again.
func (h *SessionHandle) Ensure(ctx context.Context) (ChatSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.chat != nil {
		return h.chat, nil
	}
	if h.backend == nil {
		return nil, errors.Wrap(ErrSessionUnavailable, "no AI backend configured")
	}

	chat, err := h.backend.NewChat(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrSessionUnavailable, "create chat: %v", err)
	}
	if chat == nil {
		return nil, errors.Wrap(ErrSessionUnavailable, "backend returned no chat")
	}

	h.chat = chat
	return chat, nil
}

type seqStream struct {
	next func() (string, error, bool)
	stop func()
	done bool
}

// StreamFromSeq adapts a push iterator of text chunks into a ChunkStream.
func StreamFromSeq(seq iter.Seq2[string, error]) ChunkStream {
	next, stop := iter.Pull2(seq)
	return &seqStream{next: next, stop: stop}
}

func (s *seqStream) Recv() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}
	text, err, ok := s.next()
	if !ok {
		s.done = true
		return Chunk{}, io.EOF
	}
	if err != nil {
		s.done = true
		return Chunk{}, err
	}
	return Chunk{Text: text}, nil
}

func (s *seqStream) Close() error {
	s.done = true
	s.stop()
	return nil
}
