package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

type StockStatus string

const (
	InStock      StockStatus = "IN_STOCK"
	LowStock     StockStatus = "LOW_STOCK"
	OutOfStock   StockStatus = "OUT_OF_STOCK"
	Discontinued StockStatus = "DISCONTINUED"
)

func (s StockStatus) Valid() bool {
	switch s {
	case InStock, LowStock, OutOfStock, Discontinued:
		return true
	}
	return false
}

type Restaurant struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	TenantID  string    `json:"tenantId"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tenant falls back to the restaurant id when no tenant was assigned.
func (r Restaurant) Tenant() string {
	if r.TenantID != "" {
		return r.TenantID
	}
	return r.ID
}

type Category struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	Name         string `json:"name"`
	SortOrder    int    `json:"sortOrder"`
}

type MenuItem struct {
	ID               string          `json:"id"`
	RestaurantID     string          `json:"restaurantId"`
	CategoryID       *string         `json:"categoryId,omitempty"`
	Title            string          `json:"title"`
	FinalPrice       decimal.Decimal `json:"finalPrice"`
	MRP              decimal.Decimal `json:"mrp"`
	StockStatus      StockStatus     `json:"stockStatus"`
	MinOrderQuantity int             `json:"minOrderQuantity"`
	MaxOrderQuantity int             `json:"maxOrderQuantity"`
	IsActive         bool            `json:"isActive"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

func (m *MenuItem) Validate() error {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return apperr.Validation("menu item title is required")
	}
	if m.FinalPrice.IsNegative() {
		return apperr.Validation("finalPrice must not be negative")
	}
	if !m.MRP.IsZero() && m.MRP.LessThan(m.FinalPrice) {
		return apperr.Validation("mrp %s is below finalPrice %s", m.MRP.StringFixed(2), m.FinalPrice.StringFixed(2))
	}
	if m.MinOrderQuantity == 0 {
		m.MinOrderQuantity = 1
	}
	if m.MinOrderQuantity < 1 {
		return apperr.Validation("minOrderQuantity must be at least 1")
	}
	if m.MaxOrderQuantity < 0 || (m.MaxOrderQuantity > 0 && m.MaxOrderQuantity < m.MinOrderQuantity) {
		return apperr.Validation("maxOrderQuantity must be 0 or at least minOrderQuantity")
	}
	if m.StockStatus == "" {
		m.StockStatus = InStock
	}
	if !m.StockStatus.Valid() {
		return apperr.Validation("unknown stockStatus %q", m.StockStatus)
	}
	return nil
}

// CheckOrderable rejects items that cannot be put on an order at all.
func (m MenuItem) CheckOrderable() error {
	if !m.IsActive {
		return apperr.Validation("menu item %q is not active", m.Title)
	}
	if m.StockStatus == OutOfStock || m.StockStatus == Discontinued {
		return apperr.Validation("menu item %q is %s", m.Title, m.StockStatus)
	}
	return nil
}

// CheckQuantity enforces the per-line bounds. A zero maximum means unbounded.
func (m MenuItem) CheckQuantity(q int) error {
	minQ := m.MinOrderQuantity
	if minQ < 1 {
		minQ = 1
	}
	if q < minQ {
		return apperr.Validation("quantity %d for %q is below the minimum of %d", q, m.Title, minQ)
	}
	if m.MaxOrderQuantity > 0 && q > m.MaxOrderQuantity {
		return apperr.Validation("quantity %d for %q exceeds the maximum of %d", q, m.Title, m.MaxOrderQuantity)
	}
	return nil
}

// PriceFor is the current unit price, honouring a variant override.
func (m MenuItem) PriceFor(v *Variant) decimal.Decimal {
	if v != nil && v.FinalPrice != nil {
		return *v.FinalPrice
	}
	return m.FinalPrice
}

type Variant struct {
	ID         string           `json:"id"`
	MenuItemID string           `json:"menuItemId"`
	Name       string           `json:"name"`
	FinalPrice *decimal.Decimal `json:"finalPrice,omitempty"`
	IsActive   bool             `json:"isActive"`
}
