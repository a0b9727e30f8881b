package websocket

// Message defines the structure for websocket messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Message types sent to clients.
const (
	TypeNewLink = "newLink"
	TypeError   = "error"
)

// ErrorPayload is the payload of a TypeError message.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewErrorMessage builds an error message for a client.
func NewErrorMessage(kind, message string) Message {
	return Message{Type: TypeError, Payload: ErrorPayload{Kind: kind, Message: message}}
}
