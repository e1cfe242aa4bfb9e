package ai

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconecta/chat/backend/internal/config"
	"github.com/reconecta/chat/backend/internal/model/persona"
)

type countingBackend struct {
	calls int
	errs  []error
}

func (b *countingBackend) NewChat(context.Context) (ChatSession, error) {
	b.calls++
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &nopChat{}, nil
}

type nopChat struct{}

func (nopChat) SendMessageStream(context.Context, string) (ChunkStream, error) {
	return StreamFromSeq(func(func(string, error) bool) {}), nil
}

func TestSessionHandleCreatesOnce(t *testing.T) {
	backend := &countingBackend{}
	handle := NewSessionHandle(backend)
	ctx := context.Background()

	first, err := handle.Ensure(ctx)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := handle.Ensure(ctx)
		require.NoError(t, err)
		assert.Same(t, first, again)
	}

	assert.Equal(t, 1, backend.calls)
}

func TestSessionHandleSurfacesFailureAndRetries(t *testing.T) {
	backend := &countingBackend{errs: []error{errors.New("quota exceeded")}}
	handle := NewSessionHandle(backend)
	ctx := context.Background()

	_, err := handle.Ensure(ctx)
	require.ErrorIs(t, err, ErrSessionUnavailable)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, backend.calls)

	first, err := handle.Ensure(ctx)
	require.NoError(t, err)
	again, err := handle.Ensure(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 2, backend.calls)
}

func TestSessionHandleWithoutBackend(t *testing.T) {
	_, err := NewSessionHandle(nil).Ensure(context.Background())
	require.ErrorIs(t, err, ErrSessionUnavailable)
}

func TestNewBackendRequiresCredentials(t *testing.T) {
	_, err := NewBackend(context.Background(), config.AIConfig{Provider: config.ProviderGemini}, persona.Seed())
	require.Error(t, err)
}

func seqOf(chunks []string, tail error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if tail != nil {
			yield("", tail)
		}
	}
}

func TestStreamFromSeqDeliversInOrderThenEOF(t *testing.T) {
	stream := StreamFromSeq(seqOf([]string{"Entendo", " como você", " se sente."}, nil))
	defer stream.Close()

	var got []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk.Text)
	}

	assert.Equal(t, []string{"Entendo", " como você", " se sente."}, got)
	_, err := stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamFromSeqSurfacesError(t *testing.T) {
	boom := errors.New("connection reset")
	stream := StreamFromSeq(seqOf([]string{"parcial"}, boom))
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "parcial", chunk.Text)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, boom)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStreamFromSeqCloseEarly(t *testing.T) {
	stream := StreamFromSeq(seqOf([]string{"a", "b"}, nil))

	_, err := stream.Recv()
	require.NoError(t, err)
	require.NoError(t, stream.Close())

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}
