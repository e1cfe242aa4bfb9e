package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAppendPublishesOnce(t *testing.T) {
	store := NewStore(Message{ID: "initial-message", Text: "Olá", Sender: SenderBot})

	var published [][]Message
	store.Subscribe(func(messages []Message) {
		published = append(published, messages)
	})

	store.Append(
		Message{ID: "user-1", Text: "oi", Sender: SenderUser},
		Message{ID: "bot-1", Sender: SenderBot},
	)

	require.Len(t, published, 1)
	require.Len(t, published[0], 3)
	assert.Equal(t, "user-1", published[0][1].ID)
	assert.Equal(t, "bot-1", published[0][2].ID)
	assert.Equal(t, 3, store.Len())
}

func TestStoreSetTextMissingIDIsNoop(t *testing.T) {
	store := NewStore(Message{ID: "a", Text: "one", Sender: SenderUser})

	publishes := 0
	store.Subscribe(func([]Message) { publishes++ })

	store.Update(SetText("missing", "ignored"))

	assert.Equal(t, 1, publishes)
	assert.Equal(t, []Message{{ID: "a", Text: "one", Sender: SenderUser}}, store.Snapshot())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	store := NewStore(Message{ID: "a", Text: "one", Sender: SenderUser})

	snap := store.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "one", store.Snapshot()[0].Text)
}

func TestStoreListenerCannotMutateState(t *testing.T) {
	store := NewStore()
	store.Subscribe(func(messages []Message) {
		if len(messages) > 0 {
			messages[0].Text = "mutated"
		}
	})

	store.Append(Message{ID: "a", Text: "one", Sender: SenderUser})

	assert.Equal(t, "one", store.Snapshot()[0].Text)
}

func TestStoreUnsubscribe(t *testing.T) {
	store := NewStore()

	var first, second int
	cancel := store.Subscribe(func([]Message) { first++ })
	store.Subscribe(func([]Message) { second++ })

	store.Append(Message{ID: "a"})
	cancel()
	cancel()
	store.Append(Message{ID: "b"})

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestReplaceByIDLeavesInputUntouched(t *testing.T) {
	in := []Message{
		{ID: "a", Text: "one", Sender: SenderUser},
		{ID: "b", Text: "", Sender: SenderBot},
	}

	out, ok := ReplaceByID(in, "b", func(m Message) Message { return m.WithText("two") })

	require.True(t, ok)
	assert.Equal(t, "", in[1].Text)
	assert.Equal(t, "two", out[1].Text)
	assert.Equal(t, in[0], out[0])

	same, ok := ReplaceByID(in, "zzz", func(m Message) Message { return m.WithText("x") })
	assert.False(t, ok)
	assert.Equal(t, in, same)
}
