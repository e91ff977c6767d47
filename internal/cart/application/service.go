package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/cart/domain"
	orderapp "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/application"
	order "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type Service struct {
	log     *slog.Logger
	repo    Repository
	catalog Catalog
	orders  Orders
}

func NewService(log *slog.Logger, repo Repository, catalog Catalog, orders Orders) *Service {
	return &Service{log: log.With("component", "cart"), repo: repo, catalog: catalog, orders: orders}
}

func (s *Service) Get(ctx context.Context, p auth.Principal) (domain.Cart, error) {
	c, err := s.repo.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	c.Reprice()
	return c, nil
}

type AddInput struct {
	MenuItemID string  `json:"menuItemId"`
	VariantID  *string `json:"variantId,omitempty"`
	Quantity   int     `json:"quantity"`
}

func (s *Service) AddItem(ctx context.Context, p auth.Principal, in AddInput) (domain.Cart, error) {
	if in.Quantity < 1 {
		return domain.Cart{}, apperr.Validation("quantity must be at least 1")
	}
	item, err := s.catalog.GetMenuItem(ctx, in.MenuItemID)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := item.CheckOrderable(); err != nil {
		return domain.Cart{}, err
	}
	if in.VariantID != nil {
		v, err := s.catalog.GetVariant(ctx, *in.VariantID)
		if err != nil {
			return domain.Cart{}, err
		}
		if v.MenuItemID != item.ID {
			return domain.Cart{}, apperr.Validation("variant %s does not belong to menu item %s", v.ID, item.ID)
		}
		if !v.IsActive {
			return domain.Cart{}, apperr.Validation("variant %q is not active", v.Name)
		}
	}

	c, err := s.repo.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	line := domain.Item{ID: uuid.NewString(), MenuItemID: item.ID, VariantID: in.VariantID, Quantity: in.Quantity}
	if err := s.repo.AddItem(ctx, c.ID, line); err != nil {
		return domain.Cart{}, err
	}
	return s.Get(ctx, p)
}

// UpdateItem sets a line's quantity. Zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, p auth.Principal, itemID string, quantity int) (domain.Cart, error) {
	if quantity < 0 {
		return domain.Cart{}, apperr.Validation("quantity must not be negative")
	}
	c, err := s.repo.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return domain.Cart{}, err
	}
	if _, ok := c.Find(itemID); !ok {
		return domain.Cart{}, apperr.NotFound("cart item %s not found", itemID)
	}
	if quantity == 0 {
		err = s.repo.RemoveItems(ctx, c.ID, itemID)
	} else {
		err = s.repo.SetQuantity(ctx, c.ID, itemID, quantity)
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return s.Get(ctx, p)
}

func (s *Service) RemoveItem(ctx context.Context, p auth.Principal, itemID string) (domain.Cart, error) {
	return s.UpdateItem(ctx, p, itemID, 0)
}

func (s *Service) Clear(ctx context.Context, p auth.Principal) error {
	c, err := s.repo.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return err
	}
	return s.repo.Clear(ctx, c.ID)
}

type CheckoutInput struct {
	RestaurantID    string          `json:"restaurantId"`
	OrderType       order.OrderType `json:"orderType"`
	DeliveryAddress string          `json:"deliveryAddress"`
	Notes           string          `json:"notes"`
}

// Checkout places an order for the cart lines of one restaurant and then
// drops those lines. Lines of other restaurants stay in the cart.
func (s *Service) Checkout(ctx context.Context, p auth.Principal, in CheckoutInput) (order.Order, error) {
	c, err := s.repo.GetOrCreate(ctx, p.UserID)
	if err != nil {
		return order.Order{}, err
	}
	lines := c.ItemsFor(in.RestaurantID)
	if len(lines) == 0 {
		return order.Order{}, apperr.Validation("cart has no items from restaurant %s", in.RestaurantID)
	}

	req := orderapp.CreateInput{
		RestaurantID:    in.RestaurantID,
		OrderType:       in.OrderType,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Items:           make([]orderapp.ItemInput, 0, len(lines)),
	}
	ids := make([]string, 0, len(lines))
	for _, it := range lines {
		req.Items = append(req.Items, orderapp.ItemInput{MenuItemID: it.MenuItemID, VariantID: it.VariantID, Quantity: it.Quantity})
		ids = append(ids, it.ID)
	}
	o, err := s.orders.CreateOrder(ctx, p, req)
	if err != nil {
		return order.Order{}, err
	}
	if err := s.repo.RemoveItems(ctx, c.ID, ids...); err != nil {
		s.log.WarnContext(ctx, "order placed but cart lines not cleared", "order_id", o.ID, "cart_id", c.ID, "err", err)
	}
	return o, nil
}
