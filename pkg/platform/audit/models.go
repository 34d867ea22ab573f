package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "anima/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events that change who owns what: payment intents
	// and mints. These are written fail-closed.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected claims (payer mismatch, replayed memos).
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity such as progression.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	Principal id.PrincipalID
	Action    string
	// Subject names the record acted on, e.g. "memo:42" or "asset:7".
	Subject   string
	Decision  string
	Reason    string
	RequestID string
	ClientIP  string
	// Client is a short "browser/os" summary of the caller's user agent.
	Client string
}

type AuditEvent string

const (
	EventPaymentRegistered AuditEvent = "payment_registered"
	EventAssetMinted       AuditEvent = "asset_minted"
	EventMintRejected      AuditEvent = "mint_rejected"
	EventAssetInteracted   AuditEvent = "asset_interacted"
	EventAssetLeveledUp    AuditEvent = "asset_leveled_up"
	EventSnapshotRestored  AuditEvent = "snapshot_restored"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventPaymentRegistered: CategoryCompliance,
	EventAssetMinted:       CategoryCompliance,
	EventSnapshotRestored:  CategoryCompliance,

	EventMintRejected: CategorySecurity,

	EventAssetInteracted: CategoryOperations,
	EventAssetLeveledUp:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Append must join the caller's transaction when one
// is present in ctx (see pkg/platform/tx).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// OutboxEntry is an appended event awaiting relay to the event bus.
type OutboxEntry struct {
	ID        uuid.UUID
	Key       string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// Outbox exposes entries not yet relayed.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
