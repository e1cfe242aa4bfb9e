package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/reconecta/chat/backend/internal/logging"
	"github.com/reconecta/chat/backend/internal/model/chat"
	"github.com/reconecta/chat/backend/internal/model/persona"
	"github.com/reconecta/chat/backend/internal/service/ai"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrTurnInProgress       = errors.New("a reply is still being generated")
)

// InitialMessageID is the id of the greeting every conversation starts with.
const InitialMessageID = "initial-message"

// Conversation is the state of one page view: its store, its session and
// the controller driving turns.
type Conversation struct {
	ID         string
	CreatedAt  time.Time
	Controller *Controller

	busy         atomic.Bool
	lastActivity atomic.Int64
}

// Store returns the conversation's message store.
func (c *Conversation) Store() *chat.Store {
	return c.Controller.Store()
}

// Acquire reserves the conversation for one turn. It fails with
// ErrTurnInProgress while another turn holds it.
func (c *Conversation) Acquire() (release func(), err error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInProgress
	}
	c.touch(time.Now())

	var once sync.Once
	return func() {
		once.Do(func() {
			c.touch(time.Now())
			c.busy.Store(false)
		})
	}, nil
}

// Send runs a turn unless one is already in flight, in which case it
// returns ErrTurnInProgress without touching the store.
func (c *Conversation) Send(ctx context.Context, text string) error {
	release, err := c.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return c.Controller.SendMessage(ctx, text)
}

func (c *Conversation) touch(now time.Time) {
	c.lastActivity.Store(now.UnixNano())
}

func (c *Conversation) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActivity.Load()))
}

// Service keeps the conversations of the page views currently open.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation

	backend ai.Backend
	persona persona.Persona
	opts    Options
	idleTTL time.Duration
}

// NewService returns a registry creating sessions through backend. A nil
// backend is accepted; turns then fail with ai.ErrSessionUnavailable.
func NewService(backend ai.Backend, p persona.Persona, opts Options, idleTTL time.Duration) *Service {
	return &Service{
		conversations: make(map[string]*Conversation),
		backend:       backend,
		persona:       p,
		opts:          opts,
		idleTTL:       idleTTL,
	}
}

// Persona returns the persona greeting every conversation.
func (s *Service) Persona() persona.Persona {
	return s.persona
}

// NewConversation builds a conversation without registering it. Its store
// starts with the persona greeting and its session is created eagerly; a
// failure there is logged and retried on the first turn.
func (s *Service) NewConversation(ctx context.Context) *Conversation {
	store := chat.NewStore(chat.Message{
		ID:     InitialMessageID,
		Text:   s.persona.OpeningLine,
		Sender: chat.SenderBot,
	})

	id := uuid.NewString()
	logger := logging.Component("turn").With().Str("conv_id", id).Logger()
	opts := s.opts
	opts.Logger = &logger

	session := ai.NewSessionHandle(s.backend)
	if _, err := session.Ensure(ctx); err != nil {
		logger.Warn().Err(err).Msg("session init failed, will retry on first message")
	}

	conv := &Conversation{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		Controller: NewController(store, session, opts),
	}
	conv.touch(time.Now())
	return conv
}

// CreateConversation builds and registers a conversation.
func (s *Service) CreateConversation(ctx context.Context) *Conversation {
	conv := s.NewConversation(ctx)

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()

	logger := logging.Component("chat")
	logger.Info().Str("conv_id", conv.ID).Msg("conversation created")
	return conv
}

// GetConversation retrieves a registered conversation.
func (s *Service) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

// DeleteConversation forgets a conversation, as when its page is closed.
func (s *Service) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return ErrConversationNotFound
	}
	delete(s.conversations, id)
	return nil
}

// LoadTranscript returns the current messages of a conversation.
func (s *Service) LoadTranscript(ctx context.Context, id string) ([]chat.Message, error) {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv.Store().Snapshot(), nil
}

// Count reports the number of registered conversations.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// RunEviction drops idle conversations every interval until ctx is done.
// It returns immediately when no idle TTL is configured.
func (s *Service) RunEviction(ctx context.Context, interval time.Duration) error {
	if s.idleTTL <= 0 || interval <= 0 {
		return nil
	}

	logger := logging.Component("chat")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := s.evictIdle(now); n > 0 {
				logger.Info().Int("evicted", n).Msg("idle conversations evicted")
			}
		}
	}
}

func (s *Service) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, conv := range s.conversations {
		if conv.busy.Load() || conv.idleSince(now) < s.idleTTL {
			continue
		}
		delete(s.conversations, id)
		evicted++
	}
	return evicted
}
