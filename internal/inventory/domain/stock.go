package domain

import (
	"cmp"
	"slices"
	"time"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
)

// Record is the stock ledger row for one (menu item, variant) pair.
type Record struct {
	ID               string              `json:"id"`
	RestaurantID     string              `json:"restaurantId"`
	MenuItemID       string              `json:"menuItemId"`
	VariantID        *string             `json:"variantId,omitempty"`
	Quantity         int                 `json:"quantity"`
	ReorderThreshold int                 `json:"reorderThreshold"`
	Status           catalog.StockStatus `json:"status"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// DeriveStatus is the only source of inventory status.
func DeriveStatus(quantity, reorderThreshold int) catalog.StockStatus {
	switch {
	case quantity <= 0:
		return catalog.OutOfStock
	case quantity <= reorderThreshold:
		return catalog.LowStock
	}
	return catalog.InStock
}

// ApplyDelta clamps the result at zero.
func ApplyDelta(quantity, delta int) int {
	if n := quantity + delta; n > 0 {
		return n
	}
	return 0
}

func (r *Record) Apply(delta int) {
	r.Quantity = ApplyDelta(r.Quantity, delta)
	r.Status = DeriveStatus(r.Quantity, r.ReorderThreshold)
}

type Reason string

const (
	ReasonOrder        Reason = "ORDER"
	ReasonCancellation Reason = "CANCELLATION"
	ReasonRestock      Reason = "RESTOCK"
	ReasonManual       Reason = "MANUAL"
	ReasonWaste        Reason = "WASTE"
)

func (r Reason) Valid() bool {
	switch r {
	case ReasonOrder, ReasonCancellation, ReasonRestock, ReasonManual, ReasonWaste:
		return true
	}
	return false
}

type Adjustment struct {
	MenuItemID     string  `json:"menuItemId"`
	VariantID      *string `json:"variantId,omitempty"`
	QuantityChange int     `json:"quantityChange"`
	Reason         Reason  `json:"reason"`
	Notes          string  `json:"notes"`
}

func (a Adjustment) variantKey() string {
	if a.VariantID == nil {
		return ""
	}
	return *a.VariantID
}

// LockOrder returns adjs sorted by (menu item, variant) so concurrent
// transactions take inventory row locks in the same order.
func LockOrder(adjs []Adjustment) []Adjustment {
	out := slices.Clone(adjs)
	slices.SortStableFunc(out, func(a, b Adjustment) int {
		return cmp.Or(cmp.Compare(a.MenuItemID, b.MenuItemID), cmp.Compare(a.variantKey(), b.variantKey()))
	})
	return out
}

func (a Adjustment) Validate() error {
	if a.MenuItemID == "" {
		return apperr.Validation("menuItemId is required")
	}
	if a.QuantityChange == 0 {
		return apperr.Validation("quantityChange must not be zero")
	}
	if !a.Reason.Valid() {
		return apperr.Validation("unknown adjustment reason %q", a.Reason)
	}
	return nil
}

// Entry is one row of the append-only adjustment history.
type Entry struct {
	ID                int64     `json:"id"`
	InventoryID       string    `json:"inventoryId"`
	Delta             int       `json:"delta"`
	ResultingQuantity int       `json:"resultingQuantity"`
	Reason            Reason    `json:"reason"`
	Notes             string    `json:"notes"`
	ActorID           string    `json:"actorId"`
	CreatedAt         time.Time `json:"createdAt"`
}
