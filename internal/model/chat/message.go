package chat

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one bubble of the conversation. Bot messages are superseded by a
// new record with the same ID while their reply streams in.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// WithText returns a copy of m carrying text.
func (m Message) WithText(text string) Message {
	m.Text = text
	return m
}
