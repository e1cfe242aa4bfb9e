package ai

import (
	"context"
	"io"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/pkg/errors"

	"github.com/reconecta/chat/backend/internal/config"
	"github.com/reconecta/chat/backend/internal/model/persona"
)

// ArkBackend streams replies from a Volcengine Ark model through an eino
// chain. Each chat keeps its own history.
type ArkBackend struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	system string
}

// NewArkBackend creates the Ark chat model described by cfg.
func NewArkBackend(ctx context.Context, cfg config.AIConfig, p persona.Persona) (*ArkBackend, error) {
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:   cfg.ArkBaseURL,
		Region:    cfg.ArkRegion,
		APIKey:    cfg.ArkAPIKey,
		AccessKey: cfg.ArkAccessKey,
		SecretKey: cfg.ArkSecretKey,
		Model:     cfg.ArkModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create Ark chat model")
	}
	return NewChainBackend(ctx, chatModel, p)
}

// NewChainBackend compiles the system/history/query chain over chatModel.
func NewChainBackend(ctx context.Context, chatModel model.BaseChatModel, p persona.Persona) (*ArkBackend, error) {
	template := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "compile chat chain")
	}

	return &ArkBackend{chain: runnable, system: p.Instruction()}, nil
}

// NewChat starts an empty conversation.
func (b *ArkBackend) NewChat(context.Context) (ChatSession, error) {
	return &arkChat{backend: b}, nil
}

type arkChat struct {
	backend *ArkBackend

	mu      sync.Mutex
	history []*schema.Message
}

func (c *arkChat) SendMessageStream(ctx context.Context, text string) (ChunkStream, error) {
	c.mu.Lock()
	history := append([]*schema.Message(nil), c.history...)
	c.mu.Unlock()

	reader, err := c.backend.chain.Stream(ctx, map[string]any{
		"system":  c.backend.system,
		"history": history,
		"query":   text,
	})
	if err != nil {
		return nil, errors.Wrap(err, "stream chat chain")
	}

	return &arkStream{reader: reader, chat: c, query: text}, nil
}

// commit records a finished exchange so later turns see it.
func (c *arkChat) commit(query string, chunks []*schema.Message) error {
	reply, err := schema.ConcatMessages(chunks)
	if err != nil {
		return errors.Wrap(err, "concat reply chunks")
	}

	c.mu.Lock()
	c.history = append(c.history, schema.UserMessage(query), schema.AssistantMessage(reply.Content, nil))
	c.mu.Unlock()
	return nil
}

// History returns a copy of the committed exchanges.
func (c *arkChat) History() []*schema.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*schema.Message(nil), c.history...)
}

type arkStream struct {
	reader *schema.StreamReader[*schema.Message]
	chat   *arkChat
	query  string
	chunks []*schema.Message
	done   bool
}

func (s *arkStream) Recv() (Chunk, error) {
	for {
		if s.done {
			return Chunk{}, io.EOF
		}

		msg, err := s.reader.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			if len(s.chunks) == 0 {
				return Chunk{}, io.EOF
			}
			if err := s.chat.commit(s.query, s.chunks); err != nil {
				return Chunk{}, err
			}
			return Chunk{}, io.EOF
		}
		if err != nil {
			s.done = true
			return Chunk{}, errors.Wrap(err, "Ark stream")
		}
		if msg == nil {
			continue
		}

		s.chunks = append(s.chunks, msg)
		return Chunk{Text: msg.Content}, nil
	}
}

func (s *arkStream) Close() error {
	s.done = true
	s.reader.Close()
	return nil
}
