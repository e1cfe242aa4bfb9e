package ai

import (
	"context"
	"iter"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/reconecta/chat/backend/internal/config"
	"github.com/reconecta/chat/backend/internal/model/persona"
)

// GeminiBackend opens chats on the Gemini API. Conversation history lives in
// the SDK chat object.
type GeminiBackend struct {
	client *genai.Client
	model  string
	system *genai.Content
}

// NewGeminiBackend creates the Gemini client for cfg.
func NewGeminiBackend(ctx context.Context, cfg config.AIConfig, p persona.Persona) (*GeminiBackend, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create Gemini client")
	}

	return &GeminiBackend{
		client: client,
		model:  cfg.GeminiModel,
		system: genai.NewContentFromText(p.Instruction(), genai.RoleUser),
	}, nil
}

// NewChat starts a chat whose system instruction is the persona prompt.
func (b *GeminiBackend) NewChat(ctx context.Context) (ChatSession, error) {
	chat, err := b.client.Chats.Create(ctx, b.model, &genai.GenerateContentConfig{
		SystemInstruction: b.system,
	}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create Gemini chat model=%s", b.model)
	}
	return &geminiChat{chat: chat}, nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (c *geminiChat) SendMessageStream(ctx context.Context, text string) (ChunkStream, error) {
	responses := c.chat.SendMessageStream(ctx, genai.Part{Text: text})
	return StreamFromSeq(responseText(responses)), nil
}

// responseText maps streamed Gemini responses to their text.
func responseText(responses iter.Seq2[*genai.GenerateContentResponse, error]) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range responses {
			if err != nil {
				yield("", errors.Wrap(err, "Gemini stream"))
				return
			}
			if resp == nil {
				continue
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}
