package event

import (
	"encoding/json"
	"fmt"

	"github.com/wagiedev/tsserver-go/internal/message"
	"github.com/wagiedev/tsserver-go/internal/pending"
)

// Topic names an event and fixes the type of its payload.
type Topic[T any] struct {
	name string
}

// NewTopic creates a topic for name.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the event name.
func (t Topic[T]) Name() string {
	return t.name
}

// Subscribe registers a typed handler. Payloads of any other type published
// under the same name are ignored by this handler.
func Subscribe[T any](b *Bus, topic Topic[T], fn func(T)) (unsubscribe func()) {
	return b.Subscribe(topic.name, func(payload any) {
		if v, ok := payload.(T); ok {
			fn(v)
		}
	})
}

// Publish sends a typed payload.
func Publish[T any](p Publisher, topic Topic[T], payload T) {
	p.Publish(topic.name, payload)
}

// Known topics.
var (
	SyntaxDiag           = NewTopic[message.DiagnosticEventBody](message.EventSyntaxDiag)
	SemanticDiag         = NewTopic[message.DiagnosticEventBody](message.EventSemanticDiag)
	SuggestionDiag       = NewTopic[message.DiagnosticEventBody](message.EventSuggestionDiag)
	ConfigFileDiag       = NewTopic[message.ConfigFileDiagnosticEventBody](message.EventConfigFileDiag)
	ProjectLoadingStart  = NewTopic[message.ProjectLoadingStartEventBody](message.EventProjectLoadingStart)
	ProjectLoadingFinish = NewTopic[message.ProjectLoadingFinishEventBody](message.EventProjectLoadingFinish)
	RequestCompleted     = NewTopic[message.RequestCompletedEventBody](message.EventRequestCompleted)

	// PendingRequestsChange is published by the client itself whenever the
	// set of requests awaiting a response changes.
	PendingRequestsChange = NewTopic[[]pending.Info]("pendingRequestsChange")

	// ServerExit is published by the client when its server process dies
	// on its own. The payload is the error that ended the connection.
	ServerExit = NewTopic[error]("serverExit")
)

// DiagnosticTopics are the topics carrying per-file diagnostics.
var DiagnosticTopics = []Topic[message.DiagnosticEventBody]{SyntaxDiag, SemanticDiag, SuggestionDiag}

// DecodePayload converts the body of a server event into the payload type of
// its topic. Events without a known topic yield their raw JSON body.
func DecodePayload(msg *message.Message) (any, error) {
	switch msg.Event {
	case message.EventSyntaxDiag, message.EventSemanticDiag, message.EventSuggestionDiag:
		return decode[message.DiagnosticEventBody](msg)
	case message.EventConfigFileDiag:
		return decode[message.ConfigFileDiagnosticEventBody](msg)
	case message.EventProjectLoadingStart:
		return decode[message.ProjectLoadingStartEventBody](msg)
	case message.EventProjectLoadingFinish:
		return decode[message.ProjectLoadingFinishEventBody](msg)
	case message.EventRequestCompleted:
		return decode[message.RequestCompletedEventBody](msg)
	default:
		return json.RawMessage(msg.Body), nil
	}
}

func decode[T any](msg *message.Message) (any, error) {
	var body T
	if err := msg.DecodeBody(&body); err != nil {
		return nil, fmt.Errorf("event %s: %w", msg.Event, err)
	}

	return body, nil
}
