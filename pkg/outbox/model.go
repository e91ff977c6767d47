package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Event is a row of the outbox table. A failed dispatch moves AvailableAt
// forward by Backoff(RetryCount).
type Event struct {
	ID            int64
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
	CreatedAt     time.Time
	AvailableAt   time.Time
	Status        Status
	RelayID       string
	RetryCount    int
	LastError     *string
}

// Message is what a repository enqueues inside its own transaction.
type Message struct {
	AggregateType string
	AggregateID   string
	Type          string
	Payload       any
	Headers       map[string]string
}
