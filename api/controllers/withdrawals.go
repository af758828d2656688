package controllers

import (
	"net/http"

	"github.com/widyatama/jasaku-backend/api/responses"
	"github.com/widyatama/jasaku-backend/api/validators"
	internalwithdrawals "github.com/widyatama/jasaku-backend/internal/withdrawals"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"
)

type requestWithdrawalRequest struct {
	AmountCents       int64  `json:"amount_cents" validate:"required,min=1"`
	BankName          string `json:"bank_name" validate:"required,max=100"`
	BankAccountNumber string `json:"bank_account_number" validate:"required,max=50"`
	BankAccountName   string `json:"bank_account_name" validate:"required,max=100"`
}

// RequestWithdrawal opens a payout and reserves the gross amount from the
// caller's available balance.
func RequestWithdrawal(svc internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawals service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req requestWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Request(r.Context(), internalwithdrawals.RequestInput{
			FreelancerID:      actor.UserID,
			AmountCents:       req.AmountCents,
			BankName:          validators.SanitizeString(req.BankName, 100),
			BankAccountNumber: validators.SanitizeString(req.BankAccountNumber, 50),
			BankAccountName:   validators.SanitizeString(req.BankAccountName, 100),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalwithdrawals.FromModel(withdrawal))
	}
}

// GetWithdrawal returns one withdrawal visible to the caller.
func GetWithdrawal(svc internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		withdrawalID, err := parseUUIDParam(r, "withdrawalID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Get(r.Context(), withdrawalID, internalwithdrawals.Actor{UserID: actor.UserID, Role: actor.Role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalwithdrawals.FromModel(withdrawal))
	}
}

// ListMyWithdrawals pages the caller's own payout requests.
func ListMyWithdrawals(svc internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
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

		items, total, err := svc.ListByFreelancer(r.Context(), actor.UserID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse{
			Items:  internalwithdrawals.FromModels(items),
			Total:  total,
			Limit:  limit,
			Offset: offset,
		})
	}
}
