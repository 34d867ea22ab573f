package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "anima/pkg/platform/audit"
	txcontext "anima/pkg/platform/tx"
)

type outboxRow struct {
	entry       audit.OutboxEntry
	publishedAt *time.Time
}

// InMemoryStore keeps audit events and their outbox rows in process.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	outbox []outboxRow
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append stores event and its outbox row. Inside an in-process state
// transaction the write waits for that transaction to commit.
func (s *InMemoryStore) Append(ctx context.Context, event audit.Event) error {
	event = audit.Prepare(event)
	payload, err := audit.EncodePayload(event)
	if err != nil {
		return err
	}
	row := outboxRow{entry: audit.OutboxEntry{
		ID:        uuid.New(),
		Key:       audit.Key(event),
		EventType: event.Action,
		Payload:   payload,
		CreatedAt: event.Timestamp,
	}}

	write := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, event)
		s.outbox = append(s.outbox, row)
	}
	if !txcontext.Defer(ctx, write) {
		write()
	}
	return nil
}

// ListRecent returns the most recent events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

func (s *InMemoryStore) FetchPending(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.OutboxEntry
	for _, row := range s.outbox {
		if row.publishedAt != nil {
			continue
		}
		out = append(out, row.entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, entryID := range ids {
		want[entryID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if _, ok := want[s.outbox[i].entry.ID]; ok && s.outbox[i].publishedAt == nil {
			published := at
			s.outbox[i].publishedAt = &published
		}
	}
	return nil
}
