package application

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type Service struct {
	log  *slog.Logger
	repo Repository
	now  func() time.Time
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log.With("component", "catalog"), repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

type RestaurantInput struct {
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
	OwnerID  string `json:"ownerId"`
}

func (s *Service) CreateRestaurant(ctx context.Context, p auth.Principal, in RestaurantInput) (domain.Restaurant, error) {
	if p.Role != auth.RoleRestaurantOwner && !p.Role.IsAdmin() {
		return domain.Restaurant{}, apperr.Forbidden("only restaurant owners can create restaurants")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Restaurant{}, apperr.Validation("restaurant name is required")
	}
	owner := p.UserID
	if p.Role.IsAdmin() && in.OwnerID != "" {
		owner = in.OwnerID
	}
	tenant := in.TenantID
	if tenant == "" {
		tenant = p.TenantID
	}
	now := s.now()
	r := domain.Restaurant{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		TenantID:  tenant,
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateRestaurant(ctx, r); err != nil {
		return domain.Restaurant{}, err
	}
	s.log.Info("restaurant created", "restaurant_id", r.ID, "owner_id", owner)
	return r, nil
}

type RestaurantPatch struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"isActive"`
}

func (s *Service) UpdateRestaurant(ctx context.Context, p auth.Principal, id string, patch RestaurantPatch) (domain.Restaurant, error) {
	r, err := s.authorizedRestaurant(ctx, p, id)
	if err != nil {
		return domain.Restaurant{}, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.Restaurant{}, apperr.Validation("restaurant name is required")
		}
		r.Name = name
	}
	if patch.IsActive != nil {
		r.IsActive = *patch.IsActive
	}
	r.UpdatedAt = s.now()
	if err := s.repo.UpdateRestaurant(ctx, r); err != nil {
		return domain.Restaurant{}, err
	}
	return r, nil
}

func (s *Service) GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error) {
	return s.repo.GetRestaurant(ctx, id)
}

func (s *Service) ListRestaurants(ctx context.Context, p auth.Principal) ([]domain.Restaurant, error) {
	return s.repo.ListRestaurants(ctx, !p.Role.IsAdmin())
}

func (s *Service) AddStaff(ctx context.Context, p auth.Principal, restaurantID, userID string) error {
	if _, err := s.authorizedRestaurant(ctx, p, restaurantID); err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return apperr.Validation("userId is required")
	}
	return s.repo.AddStaff(ctx, restaurantID, userID)
}

// RestaurantIDsForUser lists restaurants the user owns or staffs.
func (s *Service) RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error) {
	return s.repo.RestaurantIDsForUser(ctx, userID)
}

type CategoryInput struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

func (s *Service) CreateCategory(ctx context.Context, p auth.Principal, restaurantID string, in CategoryInput) (domain.Category, error) {
	if _, err := s.authorizedRestaurant(ctx, p, restaurantID); err != nil {
		return domain.Category{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Category{}, apperr.Validation("category name is required")
	}
	c := domain.Category{ID: uuid.NewString(), RestaurantID: restaurantID, Name: name, SortOrder: in.SortOrder}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, restaurantID string) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, restaurantID)
}

type MenuItemInput struct {
	CategoryID       *string            `json:"categoryId"`
	Title            string             `json:"title"`
	FinalPrice       decimal.Decimal    `json:"finalPrice"`
	MRP              decimal.Decimal    `json:"mrp"`
	StockStatus      domain.StockStatus `json:"stockStatus"`
	MinOrderQuantity int                `json:"minOrderQuantity"`
	MaxOrderQuantity int                `json:"maxOrderQuantity"`
}

func (s *Service) CreateMenuItem(ctx context.Context, p auth.Principal, restaurantID string, in MenuItemInput) (domain.MenuItem, error) {
	if _, err := s.authorizedRestaurant(ctx, p, restaurantID); err != nil {
		return domain.MenuItem{}, err
	}
	now := s.now()
	m := domain.MenuItem{
		ID:               uuid.NewString(),
		RestaurantID:     restaurantID,
		CategoryID:       in.CategoryID,
		Title:            in.Title,
		FinalPrice:       in.FinalPrice.Round(2),
		MRP:              in.MRP.Round(2),
		StockStatus:      in.StockStatus,
		MinOrderQuantity: in.MinOrderQuantity,
		MaxOrderQuantity: in.MaxOrderQuantity,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := m.Validate(); err != nil {
		return domain.MenuItem{}, err
	}
	if err := s.repo.CreateMenuItem(ctx, m); err != nil {
		return domain.MenuItem{}, err
	}
	return m, nil
}

type MenuItemPatch struct {
	Title            *string             `json:"title"`
	FinalPrice       *decimal.Decimal    `json:"finalPrice"`
	MRP              *decimal.Decimal    `json:"mrp"`
	StockStatus      *domain.StockStatus `json:"stockStatus"`
	MinOrderQuantity *int                `json:"minOrderQuantity"`
	MaxOrderQuantity *int                `json:"maxOrderQuantity"`
	IsActive         *bool               `json:"isActive"`
}

func (s *Service) UpdateMenuItem(ctx context.Context, p auth.Principal, id string, patch MenuItemPatch) (domain.MenuItem, error) {
	m, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if _, err := s.authorizedRestaurant(ctx, p, m.RestaurantID); err != nil {
		return domain.MenuItem{}, err
	}
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.FinalPrice != nil {
		m.FinalPrice = patch.FinalPrice.Round(2)
	}
	if patch.MRP != nil {
		m.MRP = patch.MRP.Round(2)
	}
	if patch.StockStatus != nil {
		m.StockStatus = *patch.StockStatus
	}
	if patch.MinOrderQuantity != nil {
		m.MinOrderQuantity = *patch.MinOrderQuantity
	}
	if patch.MaxOrderQuantity != nil {
		m.MaxOrderQuantity = *patch.MaxOrderQuantity
	}
	if patch.IsActive != nil {
		m.IsActive = *patch.IsActive
	}
	if err := m.Validate(); err != nil {
		return domain.MenuItem{}, err
	}
	m.UpdatedAt = s.now()
	if err := s.repo.UpdateMenuItem(ctx, m); err != nil {
		return domain.MenuItem{}, err
	}
	return m, nil
}

func (s *Service) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	return s.repo.GetMenuItem(ctx, id)
}

func (s *Service) ListMenuItems(ctx context.Context, restaurantID string) ([]domain.MenuItem, error) {
	return s.repo.ListMenuItems(ctx, restaurantID)
}

type VariantInput struct {
	Name       string           `json:"name"`
	FinalPrice *decimal.Decimal `json:"finalPrice"`
}

func (s *Service) CreateVariant(ctx context.Context, p auth.Principal, menuItemID string, in VariantInput) (domain.Variant, error) {
	m, err := s.repo.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return domain.Variant{}, err
	}
	if _, err := s.authorizedRestaurant(ctx, p, m.RestaurantID); err != nil {
		return domain.Variant{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Variant{}, apperr.Validation("variant name is required")
	}
	v := domain.Variant{ID: uuid.NewString(), MenuItemID: menuItemID, Name: name, IsActive: true}
	if in.FinalPrice != nil {
		if in.FinalPrice.IsNegative() {
			return domain.Variant{}, apperr.Validation("variant finalPrice must not be negative")
		}
		price := in.FinalPrice.Round(2)
		v.FinalPrice = &price
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return domain.Variant{}, err
	}
	return v, nil
}

func (s *Service) GetVariant(ctx context.Context, id string) (domain.Variant, error) {
	return s.repo.GetVariant(ctx, id)
}

// authorizedRestaurant loads the restaurant and checks that p may manage it.
func (s *Service) authorizedRestaurant(ctx context.Context, p auth.Principal, id string) (domain.Restaurant, error) {
	r, err := s.repo.GetRestaurant(ctx, id)
	if err != nil {
		return domain.Restaurant{}, err
	}
	if p.Role.IsAdmin() || r.OwnerID == p.UserID {
		return r, nil
	}
	if p.Role == auth.RoleRestaurantStaff {
		ids, err := s.repo.RestaurantIDsForUser(ctx, p.UserID)
		if err != nil {
			return domain.Restaurant{}, err
		}
		if slices.Contains(ids, id) {
			return r, nil
		}
	}
	return domain.Restaurant{}, apperr.Forbidden("no access to restaurant %s", id)
}
