package application

import (
	"context"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
)

type StockRepository interface {
	// Get returns nil, nil when the pair has no ledger row.
	Get(ctx context.Context, menuItemID string, variantID *string) (*domain.Record, error)
	Upsert(ctx context.Context, r domain.Record) (domain.Record, error)
	// Adjust returns nil, nil when the pair has no ledger row.
	Adjust(ctx context.Context, adj domain.Adjustment, actorID string) (*domain.Record, error)
	ListLowStock(ctx context.Context, restaurantID string) ([]domain.Record, error)
	GetByID(ctx context.Context, id string) (domain.Record, error)
	History(ctx context.Context, inventoryID string, limit int) ([]domain.Entry, error)
}

type Catalog interface {
	GetMenuItem(ctx context.Context, id string) (catalog.MenuItem, error)
	GetVariant(ctx context.Context, id string) (catalog.Variant, error)
	RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error)
}
