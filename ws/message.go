// Package ws implements spec.md §6's WebSocket transport: client-side dial
// with scheme auto-upgrade, auto-reconnect with backoff, and a ping/pong
// health loop, grounded on gomind's ui/transports/websocket read/write
// pumps but inverted from server-upgrade to client-dial via
// gorilla/websocket.Dialer.
package ws

// Kind distinguishes a text message from a binary one, per spec.md §6's
// message ∈ {text(string), binary(bytes)}.
type Kind int

const (
	Text Kind = iota
	Binary
)

// Message is one frame sent or received over the socket.
type Message struct {
	Kind Kind
	Text string
	Data []byte
}

// NewTextMessage constructs a text Message.
func NewTextMessage(text string) Message { return Message{Kind: Text, Text: text} }

// NewBinaryMessage constructs a binary Message.
func NewBinaryMessage(data []byte) Message { return Message{Kind: Binary, Data: data} }
