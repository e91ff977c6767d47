package application

import (
	"context"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
)

type Repository interface {
	CreateRestaurant(ctx context.Context, r domain.Restaurant) error
	UpdateRestaurant(ctx context.Context, r domain.Restaurant) error
	GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error)
	ListRestaurants(ctx context.Context, activeOnly bool) ([]domain.Restaurant, error)
	AddStaff(ctx context.Context, restaurantID, userID string) error
	RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error)

	CreateCategory(ctx context.Context, c domain.Category) error
	ListCategories(ctx context.Context, restaurantID string) ([]domain.Category, error)

	CreateMenuItem(ctx context.Context, m domain.MenuItem) error
	UpdateMenuItem(ctx context.Context, m domain.MenuItem) error
	GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error)
	ListMenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error)

	CreateVariant(ctx context.Context, v domain.Variant) error
	GetVariant(ctx context.Context, id string) (domain.Variant, error)
}
