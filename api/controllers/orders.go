package controllers

import (
	"net/http"
	"strings"

	"github.com/widyatama/jasaku-backend/api/responses"
	"github.com/widyatama/jasaku-backend/api/validators"
	internalorders "github.com/widyatama/jasaku-backend/internal/orders"
	"github.com/widyatama/jasaku-backend/pkg/enums"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"

	"github.com/google/uuid"
)

type createOrderRequest struct {
	FreelancerID     uuid.UUID `json:"freelancer_id" validate:"required"`
	ServicePackageID uuid.UUID `json:"service_package_id" validate:"required"`
	Title            string    `json:"title" validate:"required,max=200"`
	Requirements     *string   `json:"requirements,omitempty"`
	PriceCents       int64     `json:"price_cents" validate:"required,min=1"`
	WorkDurationDays int       `json:"work_duration_days" validate:"required,min=1,max=365"`
}

type transitionRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CreateOrder opens an order in awaiting_payment with fees computed on top
// of the base price.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			ClientID:         actor.UserID,
			FreelancerID:     req.FreelancerID,
			ServicePackageID: req.ServicePackageID,
			Title:            validators.SanitizeString(req.Title, 200),
			Requirements:     req.Requirements,
			PriceCents:       req.PriceCents,
			WorkDurationDays: req.WorkDurationDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.FromModel(order))
	}
}

// GetOrder returns one order visible to the caller.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}

// OrderHistory returns the append-only transition log of an order.
func OrderHistory(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.HistoryFromModels(history))
	}
}

// ListOrders pages the caller's orders, optionally filtered by status.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, offset, err := parsePaging(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.ListInput{Actor: actor, Limit: limit, Offset: offset}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		items, total, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse{
			Items:  internalorders.FromModels(items),
			Total:  total,
			Limit:  limit,
			Offset: offset,
		})
	}
}

// OrderTransition handles one lifecycle action endpoint. The event is fixed
// per route; the state machine decides whether the caller may apply it.
func OrderTransition(svc internalorders.Service, event enums.OrderEvent, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseUUIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Apply(r.Context(), internalorders.ApplyInput{
			OrderID: orderID,
			Event:   event,
			Actor:   actor,
			Reason:  req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.FromModel(order))
	}
}
