package message

import (
	"encoding/json"
	"fmt"
)

// Message kinds carried in the "type" field.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Request is a command sent to the server.
type Request struct {
	Seq       int64  `json:"seq"`
	Type      string `json:"type"`
	Command   string `json:"command"`
	Arguments any    `json:"arguments,omitempty"`
}

// NewRequest builds a request envelope for command.
func NewRequest(seq int64, command string, args any) *Request {
	return &Request{
		Seq:       seq,
		Type:      TypeRequest,
		Command:   command,
		Arguments: args,
	}
}

// Message is a framed message received from the server. It is either a
// response (Type == "response") or an event (Type == "event").
type Message struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Response fields.
	RequestSeq int64  `json:"request_seq,omitempty"` //nolint:tagliatelle // tsserver uses snake_case here
	Command    string `json:"command,omitempty"`
	Success    bool   `json:"success,omitempty"`
	Message    string `json:"message,omitempty"`

	// Event fields.
	Event string `json:"event,omitempty"`

	// Body is the command or event specific payload.
	Body json.RawMessage `json:"body,omitempty"`
}

// IsResponse reports whether m answers a request.
func (m *Message) IsResponse() bool {
	return m.Type == TypeResponse
}

// IsEvent reports whether m is an unsolicited event.
func (m *Message) IsEvent() bool {
	return m.Type == TypeEvent
}

// DecodeBody unmarshals the body into v. An absent body leaves v untouched.
func (m *Message) DecodeBody(v any) error {
	if len(m.Body) == 0 || string(m.Body) == "null" {
		return nil
	}

	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decode %s body: %w", m.name(), err)
	}

	return nil
}

func (m *Message) name() string {
	if m.IsEvent() {
		return m.Event
	}

	return m.Command
}
