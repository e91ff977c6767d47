package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/domain"
	inventory "github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
)

type stubRepo struct {
	orders map[string]domain.Order
}

func (s *stubRepo) Apply(ctx context.Context, m domain.Mutation) error {
	if m.Order != nil {
		s.orders[m.Order.ID] = *m.Order
	}
	return nil
}

func (s *stubRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, apperr.NotFound("order %s not found", id)
	}
	return o, nil
}

func (s *stubRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Order, error) {
	out := []domain.Order{}
	for _, o := range s.orders {
		if f.Allows(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubRepo) GetDelivery(ctx context.Context, orderID string) (*domain.Delivery, error) {
	return nil, nil
}

func (s *stubRepo) ListAudit(ctx context.Context, orderID string) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (s *stubRepo) GetCancellation(ctx context.Context, id string) (domain.Cancellation, error) {
	return domain.Cancellation{}, apperr.NotFound("cancellation %s not found", id)
}

func (s *stubRepo) ListCancellations(ctx context.Context, orderID string) ([]domain.Cancellation, error) {
	return nil, nil
}

type stubCatalog struct{}

func (stubCatalog) GetRestaurant(ctx context.Context, id string) (catalog.Restaurant, error) {
	return catalog.Restaurant{ID: id, OwnerID: "owner-1", IsActive: true}, nil
}

func (stubCatalog) GetMenuItem(ctx context.Context, id string) (catalog.MenuItem, error) {
	return catalog.MenuItem{ID: id, RestaurantID: "r-1", Title: "Pizza", FinalPrice: decimal.RequireFromString("9.50"),
		StockStatus: catalog.InStock, MinOrderQuantity: 1, IsActive: true}, nil
}

func (stubCatalog) GetVariant(ctx context.Context, id string) (catalog.Variant, error) {
	return catalog.Variant{}, apperr.NotFound("variant %s not found", id)
}

func (stubCatalog) RestaurantIDsForUser(ctx context.Context, userID string) ([]string, error) {
	if userID == "owner-1" {
		return []string{"r-1"}, nil
	}
	return nil, nil
}

type stubInventory struct{}

func (stubInventory) Get(ctx context.Context, menuItemID string, variantID *string, restaurantID string) (*inventory.Record, error) {
	return nil, nil
}

const secret = "test-secret"

func newServer(t *testing.T) (*httptest.Server, *stubRepo) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubRepo{orders: map[string]domain.Order{}}
	pricing := domain.Pricing{TaxRatePercent: decimal.NewFromInt(10), DeliveryFee: decimal.RequireFromString("5.00")}
	svc := application.NewService(log, repo, stubCatalog{}, stubInventory{}, pricing)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.NewVerifier([]byte(secret)).Middleware)
		NewHandler(log, svc).Routes(r)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo
}

func token(t *testing.T, p auth.Principal) string {
	t.Helper()
	tok, err := auth.NewVerifier([]byte(secret)).Issue(p, time.Minute)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, tok, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

var (
	customer = auth.Principal{UserID: "cust-1", Role: auth.RoleCustomer}
	owner    = auth.Principal{UserID: "owner-1", Role: auth.RoleRestaurantOwner}
)

func TestCreateAndFetchOrder(t *testing.T) {
	srv, _ := newServer(t)
	tok := token(t, customer)

	resp := do(t, http.MethodPost, srv.URL+"/orders", tok,
		`{"restaurantId":"r-1","orderType":"PICKUP","items":[{"menuItemId":"pizza","quantity":2}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "19.00", created.Subtotal.StringFixed(2))
	assert.Equal(t, "20.90", created.Total.StringFixed(2))

	resp = do(t, http.MethodGet, srv.URL+"/orders/"+created.ID, tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/orders/"+created.ID, token(t, auth.Principal{UserID: "cust-2", Role: auth.RoleCustomer}), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateOrderValidation(t *testing.T) {
	srv, repo := newServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/orders", token(t, customer),
		`{"restaurantId":"r-1","orderType":"DELIVERY","items":[{"menuItemId":"pizza","quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/orders", token(t, customer), `{"unitPrice":"0.01"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, repo.orders)
}

func TestUpdateOrderRoutes(t *testing.T) {
	srv, repo := newServer(t)
	repo.orders["o-1"] = domain.Order{ID: "o-1", UserID: "cust-1", RestaurantID: "r-1", Status: domain.StatusCancelled, Priority: domain.PriorityNormal}

	resp := do(t, http.MethodPatch, srv.URL+"/orders/o-1", "", `{"status":"PREPARING"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPatch, srv.URL+"/orders/o-1", token(t, customer), `{"status":"PREPARING"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodPatch, srv.URL+"/orders/o-1", token(t, owner), `{"status":"PREPARING"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, domain.StatusCancelled, repo.orders["o-1"].Status)
}

func TestListOrdersPaging(t *testing.T) {
	srv, repo := newServer(t)
	repo.orders["o-1"] = domain.Order{ID: "o-1", UserID: "cust-1", RestaurantID: "r-1"}

	resp := do(t, http.MethodGet, srv.URL+"/orders?limit=abc", token(t, owner), "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/orders?limit=10", token(t, owner), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)
}
