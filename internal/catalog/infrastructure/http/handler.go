package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/catalog/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/auth"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/httpx"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/restaurants", h.createRestaurant)
	r.Get("/restaurants", h.listRestaurants)
	r.Get("/restaurants/{id}", h.getRestaurant)
	r.Patch("/restaurants/{id}", h.updateRestaurant)
	r.Post("/restaurants/{id}/staff", h.addStaff)
	r.Post("/restaurants/{id}/categories", h.createCategory)
	r.Get("/restaurants/{id}/categories", h.listCategories)
	r.Post("/restaurants/{id}/menu-items", h.createMenuItem)
	r.Get("/restaurants/{id}/menu-items", h.listMenuItems)
	r.Get("/menu-items/{id}", h.getMenuItem)
	r.Patch("/menu-items/{id}", h.updateMenuItem)
	r.Post("/menu-items/{id}/variants", h.createVariant)
}

func (h *Handler) createRestaurant(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateRestaurant")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.RestaurantInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	rest, err := h.service.CreateRestaurant(ctx, p, in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rest)
}

func (h *Handler) listRestaurants(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	list, err := h.service.ListRestaurants(r.Context(), p)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getRestaurant(w http.ResponseWriter, r *http.Request) {
	rest, err := h.service.GetRestaurant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rest)
}

func (h *Handler) updateRestaurant(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var patch application.RestaurantPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	rest, err := h.service.UpdateRestaurant(r.Context(), p, chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rest)
}

func (h *Handler) addStaff(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.service.AddStaff(r.Context(), p, chi.URLParam(r, "id"), req.UserID); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.CategoryInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCategories(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateMenuItem")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.MenuItemInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	item, err := h.service.CreateMenuItem(ctx, p, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMenuItems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetMenuItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) updateMenuItem(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var patch application.MenuItemPatch
	if err := httpx.Decode(r, &patch); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	item, err := h.service.UpdateMenuItem(r.Context(), p, chi.URLParam(r, "id"), patch)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createVariant(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.VariantInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	v, err := h.service.CreateVariant(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}
