package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/widyatama/jasaku-backend/api/responses"
	"github.com/widyatama/jasaku-backend/api/validators"
	internalescrow "github.com/widyatama/jasaku-backend/internal/escrow"
	internalledger "github.com/widyatama/jasaku-backend/internal/ledger"
	internalplatformconfig "github.com/widyatama/jasaku-backend/internal/platformconfig"
	internalrefunds "github.com/widyatama/jasaku-backend/internal/refunds"
	"github.com/widyatama/jasaku-backend/internal/users"
	internalwithdrawals "github.com/widyatama/jasaku-backend/internal/withdrawals"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListPlatformConfig returns every configuration entry.
func ListPlatformConfig(svc internalplatformconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalplatformconfig.FromModels(items))
	}
}

type updateConfigRequest struct {
	Value string `json:"value" validate:"required,max=200"`
}

// UpdatePlatformConfig writes one audited configuration value.
func UpdatePlatformConfig(svc internalplatformconfig.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		key := validators.SanitizeString(chi.URLParam(r, "key"), 100)
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "config key is required"))
			return
		}

		var req updateConfigRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.AdminUpdate(r.Context(), internalplatformconfig.AdminUpdateInput{
			Key:     key,
			Value:   validators.SanitizeString(req.Value, 200),
			AdminID: actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalplatformconfig.FromModel(entry))
	}
}

// ListPendingRefunds pages refunds waiting on an admin verdict.
func ListPendingRefunds(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parsePaging(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, total, err := svc.ListPending(r.Context(), limit, offset)
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

type processRefundRequest struct {
	Action string  `json:"action" validate:"required,oneof=approve reject"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// ProcessRefund applies an admin verdict to a pending refund.
func ProcessRefund(svc internalrefunds.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req processRefundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Process(r.Context(), internalrefunds.ProcessInput{
			RefundID: refundID,
			Actor:    actor,
			Action:   internalrefunds.ProcessAction(req.Action),
			Note:     req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalrefunds.FromModel(refund))
	}
}

// ListPendingWithdrawals pages withdrawals waiting on an admin verdict.
func ListPendingWithdrawals(svc internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset, err := parsePaging(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, total, err := svc.ListPending(r.Context(), limit, offset)
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

type processWithdrawalRequest struct {
	Action              string  `json:"action" validate:"required,oneof=approve reject fail"`
	Note                *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	TransferEvidenceURL *string `json:"transfer_evidence_url,omitempty" validate:"omitempty,url"`
}

// ProcessWithdrawal applies an admin verdict to a pending withdrawal.
func ProcessWithdrawal(svc internalwithdrawals.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req processWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := svc.Process(r.Context(), internalwithdrawals.ProcessInput{
			WithdrawalID:        withdrawalID,
			Actor:               internalwithdrawals.Actor{UserID: actor.UserID, Role: actor.Role},
			Action:              internalwithdrawals.ProcessAction(req.Action),
			Note:                req.Note,
			TransferEvidenceURL: req.TransferEvidenceURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalwithdrawals.FromModel(withdrawal))
	}
}

type releaseEscrowRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// ReleaseEscrow settles a disputed order's escrow in the freelancer's favor.
func ReleaseEscrow(svc internalescrow.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req releaseEscrowRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		held, err := svc.Release(r.Context(), internalescrow.ReleaseInput{
			OrderID: orderID,
			Actor:   actor,
			Notes:   req.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalescrow.FromModel(held))
	}
}

type adjustBalanceRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// AdjustBalance applies a signed admin correction to a freelancer balance.
func AdjustBalance(svc internalledger.Service, tx txRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || tx == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		freelancerID, err := parseUUIDParam(r, "freelancerID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = tx.WithTx(r.Context(), func(txn *gorm.DB) error {
			return svc.Adjust(r.Context(), txn, internalledger.MovementInput{
				FreelancerID: freelancerID,
				AmountCents:  req.AmountCents,
				ActorUserID:  actor.UserID,
				Metadata:     mustMetadata(map[string]string{"reason": req.Reason}),
			})
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), freelancerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalledger.BalanceFromModel(balance))
	}
}

func mustMetadata(payload map[string]string) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

type setBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// SetUserBlocked flips a user's blocked flag. Blocked users cannot log in.
func SetUserBlocked(repo *users.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users repository unavailable"))
			return
		}

		userID, err := parseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req setBlockedRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := repo.FindByID(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := repo.SetBlocked(r.Context(), userID, req.Blocked); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}
