// Package telemetry emits audit events describing what the local user did.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/observability"
)

// Publisher delivers an event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEvent names an audited action. It doubles as the routing key suffix.
type AuditEvent string

const (
	AuditLogin      AuditEvent = "session.login"
	AuditLogout     AuditEvent = "session.logout"
	AuditRegister   AuditEvent = "user.registered"
	AuditSendFailed AuditEvent = "message.send_failed"
	AuditTest       AuditEvent = "debug.test"
)

type AuditEmitter struct {
	publisher   Publisher
	prefix      string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int               `json:"schema_version"`
	EventID       string            `json:"event_id"`
	EventType     AuditEvent        `json:"event_type"`
	OccurredAt    string            `json:"occurred_at"`
	Service       string            `json:"service"`
	Environment   string            `json:"environment"`
	RequestID     string            `json:"request_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	Attrs         map[string]string `json:"attrs,omitempty"`
}

// NewAuditEmitter publishes events with routing keys "<prefix>.<event>".
func NewAuditEmitter(publisher Publisher, prefix, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		prefix:      prefix,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// RoutingKey returns the key event is published under.
func (e *AuditEmitter) RoutingKey(event AuditEvent) string {
	if e.prefix == "" {
		return string(event)
	}
	return e.prefix + "." + string(event)
}

// Emit publishes event. Failures are logged and counted, never returned.
func (e *AuditEmitter) Emit(ctx context.Context, event AuditEvent, requestID, userID string, attrs map[string]string) {
	if e == nil || e.publisher == nil {
		return
	}

	log.Printf("audit emit: event=%s request_id=%s user_id=%s", event, requestID, userID)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventID:       uuid.NewString(),
		EventType:     event,
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Attrs:         attrs,
	}

	if err := e.publisher.Publish(ctx, e.RoutingKey(event), envelope); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("audit publish failed: event=%s err=%v", event, err)
	}
}
