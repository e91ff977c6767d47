package outbox

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

type Store interface {
	LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]Event, error)
	MarkSent(ctx context.Context, ids []int64) error
	// MarkFailed records a dispatch failure. The row becomes pending again
	// at retryAt unless dead is set.
	MarkFailed(ctx context.Context, id int64, errMsg string, retryAt time.Time, dead bool) error
}

type Relay struct {
	log        *slog.Logger
	store      Store
	dispatch   *Dispatcher
	relayID    string
	batchSize  int
	interval   time.Duration
	lease      time.Duration
	maxRetries int
	now        func() time.Time
}

func NewRelay(log *slog.Logger, store Store, dispatch *Dispatcher, relayID string) *Relay {
	return &Relay{
		log:        log,
		store:      store,
		dispatch:   dispatch,
		relayID:    relayID,
		batchSize:  100,
		interval:   500 * time.Millisecond,
		lease:      30 * time.Second,
		maxRetries: 10,
		now:        time.Now,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("relay stopping", "relay_id", r.relayID)
			return nil
		case <-t.C:
			if _, err := r.Tick(ctx); err != nil {
				r.log.Error("relay tick error", "relay_id", r.relayID, "err", err)
			}
		}
	}
}

// Tick dispatches one batch and reports how many events were sent.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	events, err := r.store.LockBatch(ctx, r.relayID, r.batchSize, r.lease)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		if err := r.dispatch.Dispatch(ctx, e); err != nil {
			attempt := e.RetryCount + 1
			dead := attempt >= r.maxRetries
			if dead {
				r.log.Error("outbox event exhausted retries", "event_id", e.ID, "type", e.Type, "retries", attempt)
			}
			if err := r.store.MarkFailed(ctx, e.ID, err.Error(), r.now().Add(Backoff(e.RetryCount)), dead); err != nil {
				r.log.Error("relay mark failed error", "event_id", e.ID, "err", err)
			}
			continue
		}
		ids = append(ids, e.ID)
	}
	if len(ids) > 0 {
		if err := r.store.MarkSent(ctx, ids); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

const maxBackoff = 5 * time.Minute

// Backoff is 1s doubled per previous attempt, capped at five minutes.
func Backoff(retryCount int) time.Duration {
	if retryCount >= 9 {
		return maxBackoff
	}
	d := time.Second << retryCount
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
