package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/inventory/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/inventory", h.get)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(auth.RoleRestaurantOwner, auth.RoleRestaurantStaff, auth.RoleAdmin, auth.RoleSuperAdmin))
		r.Put("/inventory", h.upsert)
		r.Post("/inventory/adjust", h.adjust)
		r.Get("/inventory/{id}/history", h.history)
		r.Get("/restaurants/{id}/inventory/low-stock", h.lowStock)
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	menuItemID := q.Get("menuItemId")
	if menuItemID == "" {
		httpx.JSON(w, http.StatusBadRequest, map[string]string{"error": "menuItemId is required"})
		return
	}
	var variantID *string
	if v := q.Get("variantId"); v != "" {
		variantID = &v
	}
	rec, err := h.service.Get(r.Context(), menuItemID, variantID, q.Get("restaurantId"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if rec == nil {
		httpx.JSON(w, http.StatusNotFound, map[string]string{"error": "no inventory for menu item"})
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.UpsertInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	rec, err := h.service.Upsert(r.Context(), p, in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var adj domain.Adjustment
	if err := httpx.Decode(r, &adj); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	rec, err := h.service.Adjust(r.Context(), p, adj)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	entries, err := h.service.History(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	list, err := h.service.ListLowStock(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
