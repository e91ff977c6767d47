package application

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type Service struct {
	log     *slog.Logger
	repo    StockRepository
	catalog Catalog
}

func NewService(log *slog.Logger, repo StockRepository, catalog Catalog) *Service {
	return &Service{log: log.With("component", "inventory"), repo: repo, catalog: catalog}
}

// Get returns the ledger row for the pair, or nil when none exists or when
// restaurantID is given and does not match.
func (s *Service) Get(ctx context.Context, menuItemID string, variantID *string, restaurantID string) (*domain.Record, error) {
	rec, err := s.repo.Get(ctx, menuItemID, variantID)
	if err != nil || rec == nil {
		return nil, err
	}
	if restaurantID != "" && rec.RestaurantID != restaurantID {
		return nil, nil
	}
	return rec, nil
}

type UpsertInput struct {
	MenuItemID       string  `json:"menuItemId"`
	VariantID        *string `json:"variantId"`
	Quantity         int     `json:"quantity"`
	ReorderThreshold int     `json:"reorderThreshold"`
}

func (s *Service) Upsert(ctx context.Context, p auth.Principal, in UpsertInput) (domain.Record, error) {
	if in.Quantity < 0 || in.ReorderThreshold < 0 {
		return domain.Record{}, apperr.Validation("quantity and reorderThreshold must not be negative")
	}
	item, err := s.catalog.GetMenuItem(ctx, in.MenuItemID)
	if err != nil {
		return domain.Record{}, err
	}
	if in.VariantID != nil {
		v, err := s.catalog.GetVariant(ctx, *in.VariantID)
		if err != nil {
			return domain.Record{}, err
		}
		if v.MenuItemID != item.ID {
			return domain.Record{}, apperr.Validation("variant %s does not belong to menu item %s", v.ID, item.ID)
		}
	}
	if err := s.authorize(ctx, p, item.RestaurantID); err != nil {
		return domain.Record{}, err
	}
	rec := domain.Record{
		ID:               uuid.NewString(),
		RestaurantID:     item.RestaurantID,
		MenuItemID:       item.ID,
		VariantID:        in.VariantID,
		Quantity:         in.Quantity,
		ReorderThreshold: in.ReorderThreshold,
		Status:           domain.DeriveStatus(in.Quantity, in.ReorderThreshold),
	}
	return s.repo.Upsert(ctx, rec)
}

func (s *Service) Adjust(ctx context.Context, p auth.Principal, adj domain.Adjustment) (domain.Record, error) {
	if err := adj.Validate(); err != nil {
		return domain.Record{}, err
	}
	item, err := s.catalog.GetMenuItem(ctx, adj.MenuItemID)
	if err != nil {
		return domain.Record{}, err
	}
	if err := s.authorize(ctx, p, item.RestaurantID); err != nil {
		return domain.Record{}, err
	}
	rec, err := s.repo.Adjust(ctx, adj, p.UserID)
	if err != nil {
		return domain.Record{}, err
	}
	if rec == nil {
		return domain.Record{}, apperr.NotFound("no inventory for menu item %s", adj.MenuItemID)
	}
	s.log.Info("inventory adjusted", "menu_item_id", adj.MenuItemID, "delta", adj.QuantityChange, "quantity", rec.Quantity, "status", rec.Status)
	return *rec, nil
}

func (s *Service) ListLowStock(ctx context.Context, p auth.Principal, restaurantID string) ([]domain.Record, error) {
	if err := s.authorize(ctx, p, restaurantID); err != nil {
		return nil, err
	}
	return s.repo.ListLowStock(ctx, restaurantID)
}

func (s *Service) History(ctx context.Context, p auth.Principal, inventoryID string) ([]domain.Entry, error) {
	rec, err := s.repo.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, rec.RestaurantID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, inventoryID, 100)
}

func (s *Service) authorize(ctx context.Context, p auth.Principal, restaurantID string) error {
	if p.Role.IsAdmin() {
		return nil
	}
	if p.Role != auth.RoleRestaurantOwner && p.Role != auth.RoleRestaurantStaff {
		return apperr.Forbidden("inventory is managed by restaurant staff")
	}
	ids, err := s.catalog.RestaurantIDsForUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, restaurantID) {
		return apperr.Forbidden("no access to restaurant %s", restaurantID)
	}
	return nil
}
