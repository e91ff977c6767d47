package domain

import (
	"time"

	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
)

type Operation string

const (
	OpCreate           Operation = "CREATE"
	OpUpdate           Operation = "UPDATE"
	OpPaymentCompleted Operation = "PAYMENT_COMPLETED"
	OpPaymentUpdated   Operation = "PAYMENT_UPDATED"
	OpCancelled        Operation = "CANCELLED"
)

// AuditEntry is append-only.
type AuditEntry struct {
	ID        int64          `json:"id"`
	OrderID   string         `json:"orderId"`
	Operation Operation      `json:"operation"`
	ChangedBy string         `json:"changedBy"`
	Changes   map[string]any `json:"changes"`
	CreatedAt time.Time      `json:"createdAt"`
}

type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Diff compares the audited fields and returns nil when none changed.
func Diff(before, after Order) map[string]any {
	changes := map[string]any{}
	if before.Status != after.Status {
		changes["status"] = FieldChange{From: before.Status, To: after.Status}
	}
	if before.Notes != after.Notes {
		changes["notes"] = FieldChange{From: before.Notes, To: after.Notes}
	}
	if before.Priority != after.Priority {
		changes["priority"] = FieldChange{From: before.Priority, To: after.Priority}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// Mutation is everything one workflow step writes. Repositories apply it in
// a single transaction. Order is nil when only a cancellation is written.
type Mutation struct {
	Order  *Order
	Insert bool
	// ExpectStatus guards updates against a concurrent status change.
	ExpectStatus Status

	Delivery       *Delivery
	InsertDelivery bool

	Cancellation       *Cancellation
	InsertCancellation bool

	Stock   []inventory.Adjustment
	ActorID string

	Audit  []AuditEntry
	Events []Event
}
