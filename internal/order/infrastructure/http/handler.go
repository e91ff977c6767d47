package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/application"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/internal/order/domain"
	"github.com/dmehra2102/Restaurant-Ordering-Platform/pkg/apperr"
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
		tracer:  otel.Tracer("order-http"),
	}
}

var managers = []auth.Role{auth.RoleRestaurantOwner, auth.RoleRestaurantStaff, auth.RoleAdmin, auth.RoleSuperAdmin}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/audit", h.listAudit)
	r.Post("/orders/{id}/cancellations", h.createCancellation)
	r.Get("/orders/{id}/cancellations", h.listCancellations)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(managers...))
		r.Patch("/orders/{id}", h.updateOrder)
		r.Patch("/cancellations/{id}", h.updateCancellation)
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.CreateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.CreateOrder(ctx, p, in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	q := r.URL.Query()
	in := application.ListInput{Status: domain.Status(q.Get("status"))}
	if in.Limit, err = intParam(q.Get("limit")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if in.Offset, err = intParam(q.Get("offset")); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	orders, err := h.service.ListOrders(r.Context(), p, in)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("%q is not a valid page parameter", v)
	}
	return n, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.GetOrder(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrder")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.UpdateInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	o, err := h.service.UpdateOrder(ctx, p, chi.URLParam(r, "id"), in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	entries, err := h.service.ListAudit(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type cancellationReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) createCancellation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCancellation")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req cancellationReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.CreateCancellation(ctx, p, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCancellations(w http.ResponseWriter, r *http.Request) {
	p, err := auth.FromContext(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	list, err := h.service.ListCancellations(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

type decisionReq struct {
	Status domain.CancellationStatus `json:"status"`
}

func (h *Handler) updateCancellation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateCancellation")
	defer span.End()

	p, err := auth.FromContext(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req decisionReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	c, err := h.service.UpdateCancellation(ctx, p, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
