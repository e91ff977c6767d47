package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Item is a cart line. RestaurantID, Title and UnitPrice are read from the
// catalog on every load; the cart stores only the reference and quantity.
type Item struct {
	ID           string          `json:"id"`
	MenuItemID   string          `json:"menuItemId"`
	VariantID    *string         `json:"variantId,omitempty"`
	RestaurantID string          `json:"restaurantId"`
	Title        string          `json:"title"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// Reprice fills line totals and the subtotal from the loaded unit prices.
func (c *Cart) Reprice() {
	sum := decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		sum = sum.Add(it.LineTotal)
	}
	c.Subtotal = sum.Round(2)
}

func (c Cart) ItemsFor(restaurantID string) []Item {
	var out []Item
	for _, it := range c.Items {
		if it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	return out
}

func (c Cart) Find(itemID string) (Item, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return Item{}, false
}
