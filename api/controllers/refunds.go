package controllers

import (
	"net/http"

	"github.com/widyatama/jasaku-backend/api/responses"
	"github.com/widyatama/jasaku-backend/api/validators"
	internalrefunds "github.com/widyatama/jasaku-backend/internal/refunds"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"

	"github.com/google/uuid"
)

type requestRefundRequest struct {
	PaymentID   uuid.UUID `json:"payment_id" validate:"required"`
	Reason      string    `json:"reason" validate:"required,max=1000"`
	AmountCents *int64    `json:"amount_cents,omitempty" validate:"omitempty,min=1"`
}

// RequestRefund opens a refund against a paid payment. Omitting the amount
// requests the full held amount.
func RequestRefund(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refunds service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req requestRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Request(r.Context(), internalrefunds.RequestInput{
			PaymentID:   req.PaymentID,
			Actor:       actor,
			Reason:      validators.SanitizeString(req.Reason, 1000),
			AmountCents: req.AmountCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalrefunds.FromModel(refund))
	}
}

// GetRefund returns one refund visible to the caller.
func GetRefund(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refundID, err := parseUUIDParam(r, "refundID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Get(r.Context(), refundID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalrefunds.FromModel(refund))
	}
}

// ListMyRefunds pages the caller's own refund requests.
func ListMyRefunds(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, total, err := svc.ListByClient(r.Context(), actor.UserID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse{
			Items:  internalrefunds.FromModels(items),
			Total:  total,
			Limit:  limit,
			Offset: offset,
		})
	}
}
