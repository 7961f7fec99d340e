package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/libris/internal/accounts"
	"github.com/dejobratic/libris/internal/catalog"
	"github.com/dejobratic/libris/internal/orders/domain"
	"github.com/dejobratic/libris/internal/orders/ports"
)

// IdempotencyKeyHeader lets clients retry a reservation without creating a second order.
const IdempotencyKeyHeader = "Idempotency-Key"

type reservePayload struct {
	RentalDays int `json:"rentalDays"`
}

func (h *Handler) reserveBook(w http.ResponseWriter, r *http.Request, actor *accounts.Profile) {
	ctx := r.Context()
	bookID, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, catalog.ErrBookNotFound.Error())
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if idemKey != "" {
		idemKey = strconv.FormatInt(actor.ID, 10) + ":" + idemKey
		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload reservePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if payload.RentalDays < 0 {
		writeError(w, http.StatusBadRequest, "rentalDays cannot be negative")
		return
	}

	order, err := h.service.ReserveBook(ctx, bookID, actor.ID, payload.RentalDays)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    order.ID,
		}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			h.logger.WarnContext(ctx, "failed to store idempotent response",
				"order_id", order.ID,
				"error", err,
			)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, actor *accounts.Profile) {
	filter := ports.ListFilter{}
	query := r.URL.Query()

	if statusParam := query.Get("status"); statusParam != "" {
		status := domain.OrderStatus(statusParam)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = &status
	}

	if userParam := query.Get("user_id"); userParam != "" {
		userID, err := strconv.ParseInt(userParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = &userID
	}

	if !isStaff(actor) {
		own := actor.ID
		filter.UserID = &own
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, actor *accounts.Profile) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusNotFound, ports.ErrNotFound.Error())
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !isStaff(actor) && order.UserID != actor.ID {
		writeError(w, http.StatusNotFound, ports.ErrNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) pickupOrder(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	h.transition(w, r, h.service.Pickup)
}

func (h *Handler) returnOrder(w http.ResponseWriter, r *http.Request, _ *accounts.Profile) {
	h.transition(w, r, h.service.ReturnBook)
}

// transition answers 200 for both applied and ignored outcomes; the body says which.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) (domain.Outcome, error)) {
	id, ok := pathID(r)
	if !ok {
		writeJSON(w, http.StatusOK, domain.Ignored(domain.ReasonNotFound))
		return
	}

	outcome, err := fn(r.Context(), id)
	if err != nil && !outcome.Applied {
		h.writeServiceError(w, r, err)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "order transition applied with follow-up failure",
			"order_id", id,
			"error", err,
		)
	}
	writeJSON(w, http.StatusOK, outcome)
}
