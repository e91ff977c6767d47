package application

import (
	"context"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
)

type Repository interface {
	// Apply writes the mutation atomically. An update whose order no longer
	// has ExpectStatus fails with a conflict.
	Apply(ctx context.Context, m domain.Mutation) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Order, error)
	// GetDelivery returns nil, nil for orders without a delivery.
	GetDelivery(ctx context.Context, orderID string) (*domain.Delivery, error)
	ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error)
	GetCancellation(ctx context.Context, id string) (domain.Cancellation, error)
	ListCancellations(ctx context.Context, orderID string) ([]domain.Cancellation, error)
}

type Catalog interface {
	GetRestaurant(ctx context.Context, id string) (catalog.Restaurant, error)
	GetMenuItem(ctx context.Context, id string) (catalog.MenuItem, error)
	GetVariant(ctx context.Context, id string) (catalog.Variant, error)
	RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error)
}

type Inventory interface {
	Get(ctx context.Context, menuItemID string, variantID *string, restaurantID string) (*inventory.Record, error)
}
