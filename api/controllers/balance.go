package controllers

import (
	"net/http"

	"github.com/widyatama/jasaku-backend/api/responses"
	internalledger "github.com/widyatama/jasaku-backend/internal/ledger"
	pkgerrors "github.com/widyatama/jasaku-backend/pkg/errors"
	"github.com/widyatama/jasaku-backend/pkg/logger"
)

// GetBalance returns the caller's withdrawable balance.
func GetBalance(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.Balance(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalledger.BalanceFromModel(balance))
	}
}

// GetStatement pages the caller's ledger entries, newest first.
func GetStatement(svc internalledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

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

		entries, total, err := svc.Statement(r.Context(), actor.UserID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse{
			Items:  internalledger.EntriesFromModels(entries),
			Total:  total,
			Limit:  limit,
			Offset: offset,
		})
	}
}
