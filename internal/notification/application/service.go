package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/domain"
	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

const listLimit = 100

type Service struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{
		log:  log.With("component", "notification"),
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Handle stores the notifications for one relayed order event. Replaying an
// event id is a no-op.
func (s *Service) Handle(ctx context.Context, eventID int64, eventType string, payload []byte) error {
	var p order.EventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return apperr.Validation("decode %s payload: %v", eventType, err)
	}
	ns := domain.Compose(eventType, p)
	if len(ns) == 0 {
		s.log.DebugContext(ctx, "event produces no notification", "event_id", eventID, "type", eventType)
		return nil
	}

	now := s.now()
	for i := range ns {
		ns[i].ID = uuid.NewString()
		ns[i].SourceEventID = eventID
		ns[i].CreatedAt = now
	}
	inserted, err := s.repo.Insert(ctx, ns)
	if err != nil {
		return err
	}
	if inserted == 0 {
		s.log.InfoContext(ctx, "notifications already stored", "event_id", eventID, "type", eventType)
		return nil
	}
	s.log.InfoContext(ctx, "notifications stored", "event_id", eventID, "type", eventType, "order_id", p.OrderID, "count", inserted)
	return nil
}

func (s *Service) ListForUser(ctx context.Context, p auth.Principal, unreadOnly bool) ([]domain.Notification, error) {
	return s.repo.ListForUser(ctx, p.UserID, unreadOnly, listLimit)
}

func (s *Service) MarkRead(ctx context.Context, p auth.Principal, id string) error {
	return s.repo.MarkRead(ctx, id, p.UserID, s.now())
}
