package application

import (
	"context"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/domain"
	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	orderapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/application"
	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type Repository interface {
	// GetOrCreate returns the user's cart with its lines priced from the
	// catalog, creating an empty cart on first use.
	GetOrCreate(ctx context.Context, userID string) (domain.Cart, error)
	// AddItem inserts the line or adds to the quantity of the matching one.
	AddItem(ctx context.Context, cartID string, it domain.Item) error
	SetQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	RemoveItems(ctx context.Context, cartID string, itemIDs ...string) error
	Clear(ctx context.Context, cartID string) error
}

type Catalog interface {
	GetMenuItem(ctx context.Context, id string) (catalog.MenuItem, error)
	GetVariant(ctx context.Context, id string) (catalog.Variant, error)
}

type Orders interface {
	CreateOrder(ctx context.Context, p auth.Principal, in orderapp.CreateInput) (order.Order, error)
}
