package domain

// MessageType distinguishes human-readable and structured output
type MessageType string

const (
	MessageText MessageType = "text"
	MessageJSON MessageType = "json"
)

// Message is one output message handed back to the host runtime
type Message struct {
	Type MessageType `json:"type"`
	Text string      `json:"text,omitempty"`
	Data any         `json:"data,omitempty"`
}

// TextMessage builds a plain-text message
func TextMessage(text string) Message {
	return Message{Type: MessageText, Text: text}
}

// JSONMessage builds a structured message
func JSONMessage(data any) Message {
	return Message{Type: MessageJSON, Data: data}
}
