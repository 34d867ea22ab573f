package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "anima/pkg/domain"
)

// payload is the JSON structure relayed to the event bus.
type payload struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Principal string `json:"principal,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Client    string `json:"client,omitempty"`
}

// Prepare fills the ID and category of an event. Category is always derived
// from the action so the category map stays the source of truth.
func Prepare(event Event) Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Category = AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}

// Key is the partition key for an event: the principal when known, so one
// caller's events stay ordered.
func Key(event Event) string {
	if !event.Principal.IsNil() {
		return event.Principal.String()
	}
	return event.Subject
}

// EncodePayload renders an event for the outbox.
func EncodePayload(event Event) ([]byte, error) {
	p := payload{
		ID:        event.ID.String(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		Client:    event.Client,
	}
	if !event.Principal.IsNil() {
		p.Principal = event.Principal.String()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return b, nil
}

// DecodePayload parses an outbox payload back into an Event.
func DecodePayload(b []byte) (Event, error) {
	var p payload
	if err := json.Unmarshal(b, &p); err != nil {
		return Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return Event{}, fmt.Errorf("parse audit event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	event := Event{
		ID:        eventID,
		Category:  EventCategory(p.Category),
		Timestamp: ts,
		Action:    p.Action,
		Subject:   p.Subject,
		Decision:  p.Decision,
		Reason:    p.Reason,
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		Client:    p.Client,
	}
	if p.Principal != "" {
		principal, err := id.ParsePrincipalID(p.Principal)
		if err != nil {
			return Event{}, fmt.Errorf("parse audit principal: %w", err)
		}
		event.Principal = principal
	}
	return event, nil
}
