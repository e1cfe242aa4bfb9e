package ai

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconecta/chat/backend/internal/model/persona"
)

type scriptedModel struct {
	mu      sync.Mutex
	inputs  [][]*schema.Message
	replies [][]string
	failAt  int
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return nil, errors.New("generate not scripted")
}

func (m *scriptedModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inputs = append(m.inputs, input)
	reply := m.replies[0]
	m.replies = m.replies[1:]

	failAt := m.failAt
	sr, sw := schema.Pipe[*schema.Message](len(reply) + 1)
	go func() {
		defer sw.Close()
		for i, text := range reply {
			if failAt > 0 && i == failAt {
				sw.Send(nil, errors.New("upstream closed"))
				return
			}
			sw.Send(schema.AssistantMessage(text, nil), nil)
		}
	}()
	return sr, nil
}

func drain(t *testing.T, stream ChunkStream) (string, error) {
	t.Helper()
	defer stream.Close()

	var text string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text, nil
		}
		if err != nil {
			return text, err
		}
		text += chunk.Text
	}
}

func TestChainBackendKeepsHistoryAcrossTurns(t *testing.T) {
	ctx := context.Background()
	fake := &scriptedModel{replies: [][]string{
		{"Entendo", " como você", " se sente."},
		{"Conte mais."},
	}}

	backend, err := NewChainBackend(ctx, fake, persona.Seed())
	require.NoError(t, err)
	chat, err := backend.NewChat(ctx)
	require.NoError(t, err)

	stream, err := chat.SendMessageStream(ctx, "Estou ansioso")
	require.NoError(t, err)
	text, err := drain(t, stream)
	require.NoError(t, err)
	assert.Equal(t, "Entendo como você se sente.", text)

	stream, err = chat.SendMessageStream(ctx, "Não consigo dormir")
	require.NoError(t, err)
	_, err = drain(t, stream)
	require.NoError(t, err)

	require.Len(t, fake.inputs, 2)
	assert.Len(t, fake.inputs[0], 2)
	second := fake.inputs[1]
	require.Len(t, second, 4)
	assert.Equal(t, schema.System, second[0].Role)
	assert.Contains(t, second[0].Content, "psicólogo")
	assert.Equal(t, "Estou ansioso", second[1].Content)
	assert.Equal(t, "Entendo como você se sente.", second[2].Content)
	assert.Equal(t, "Não consigo dormir", second[3].Content)
}

func TestChainBackendDoesNotCommitFailedTurn(t *testing.T) {
	ctx := context.Background()
	fake := &scriptedModel{replies: [][]string{{"parcial", "nunca"}}, failAt: 1}

	backend, err := NewChainBackend(ctx, fake, persona.Seed())
	require.NoError(t, err)
	chat, err := backend.NewChat(ctx)
	require.NoError(t, err)

	stream, err := chat.SendMessageStream(ctx, "oi")
	require.NoError(t, err)
	text, err := drain(t, stream)
	require.Error(t, err)
	assert.Equal(t, "parcial", text)

	assert.Empty(t, chat.(*arkChat).History())
}
