package application

import (
	"context"
	"time"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/notification/domain"
)

type Repository interface {
	// Insert stores ns, skipping any already stored for the same source
	// event, kind and user. It returns how many rows were new.
	Insert(ctx context.Context, ns []domain.Notification) (int, error)
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}
