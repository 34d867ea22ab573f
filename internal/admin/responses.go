package admin

import (
	"time"

	"anima/internal/state/snapshot"
	audit "anima/pkg/platform/audit"
)

// SnapshotResponse summarizes a snapshot written on demand.
type SnapshotResponse struct {
	TakenAt     time.Time `json:"taken_at"`
	Payments    int       `json:"payments"`
	Assets      int       `json:"assets"`
	NextAssetID uint64    `json:"next_asset_id"`
}

func toSnapshotResponse(s *snapshot.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		TakenAt:     s.TakenAt,
		Payments:    len(s.Payments),
		Assets:      len(s.Assets),
		NextAssetID: s.NextAssetID,
	}
}

// AuditEventResponse is the HTTP DTO for one audit event.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Principal string    `json:"principal,omitempty"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// AuditListResponse wraps recent audit events, newest first.
type AuditListResponse struct {
	Events []*AuditEventResponse `json:"events"`
	Total  int                   `json:"total"`
}

func toAuditListResponse(events []audit.Event) *AuditListResponse {
	resp := &AuditListResponse{Events: make([]*AuditEventResponse, 0, len(events))}
	for _, e := range events {
		r := &AuditEventResponse{
			ID:        e.ID.String(),
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Action:    e.Action,
			Subject:   e.Subject,
			Decision:  e.Decision,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		}
		if !e.Principal.IsNil() {
			r.Principal = e.Principal.String()
		}
		resp.Events = append(resp.Events, r)
	}
	resp.Total = len(resp.Events)
	return resp
}
