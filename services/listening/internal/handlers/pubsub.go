package handlers

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

var ErrAsyncPublishDisabled = errors.New("async publish is disabled")

// EventPublisher queues play writes onto JetStream instead of applying
// them inline. Disabled by default; ledger writes stay synchronous unless
// the deployment opts in.
type EventPublisher struct {
	js          nats.JetStreamContext
	asyncWrites bool
}

func NewEventPublisher(js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{
		js:          js,
		asyncWrites: readAsyncWritesFromEnv(),
	}
}

func readAsyncWritesFromEnv() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("LISTENING_ASYNC_WRITES")))
	return v == "1" || v == "true" || v == "yes"
}

func (p *EventPublisher) Enabled() bool {
	return p != nil && p.js != nil && p.asyncWrites
}

func (p *EventPublisher) PublishJSON(subject string, payload map[string]any) (string, error) {
	if !p.Enabled() {
		return "", ErrAsyncPublishDisabled
	}

	eventID := uuid.NewString()
	payload["event_id"] = eventID
	if _, ok := payload["played_at"]; !ok {
		payload["played_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	if _, err := p.js.Publish(subject, body); err != nil {
		return "", err
	}
	return eventID, nil
}
