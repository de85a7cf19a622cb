// Package handlers exposes the services over a thin JSON HTTP surface.
// No protocol semantics live here: every handler decodes, resolves the
// acting member, calls one service operation and encodes the result.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"messbook/internal/balance"
	"messbook/internal/errs"
	"messbook/internal/ledger"
	"messbook/internal/meals"
	"messbook/internal/mess"
	"messbook/internal/middleware"
	"messbook/internal/models"
	"messbook/internal/report"
	"messbook/internal/storage"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	store    storage.Store
	messes   *mess.Service
	meals    *meals.Service
	ledger   *ledger.Service
	balances *balance.Engine
	reports  *report.Generator
}

// New creates the handler set.
func New(store storage.Store, messes *mess.Service, mealSvc *meals.Service, ledgerSvc *ledger.Service, balances *balance.Engine, reports *report.Generator) *Handler {
	return &Handler{
		store:    store,
		messes:   messes,
		meals:    mealSvc,
		ledger:   ledgerSvc,
		balances: balances,
		reports:  reports,
	}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messes", h.createMess)
	mux.HandleFunc("POST /v1/messes/join", h.joinMess)
	mux.HandleFunc("GET /v1/messes/{messID}/members", h.listMembers)
	mux.HandleFunc("POST /v1/messes/{messID}/transfer", h.transferManager)
	mux.HandleFunc("GET /v1/messes/{messID}/settings", h.getSettings)
	mux.HandleFunc("PUT /v1/messes/{messID}/settings", h.updateSettings)

	mux.HandleFunc("GET /v1/messes/{messID}/meals", h.getMealStatus)
	mux.HandleFunc("GET /v1/messes/{messID}/meals/ledger", h.mealLedger)
	mux.HandleFunc("POST /v1/messes/{messID}/meals/toggle", h.toggleMeal)
	mux.HandleFunc("POST /v1/messes/{messID}/meals/guest", h.logGuestMeals)
	mux.HandleFunc("PUT /v1/messes/{messID}/meals", h.editMeals)

	mux.HandleFunc("POST /v1/messes/{messID}/transactions", h.submitTransaction)
	mux.HandleFunc("GET /v1/messes/{messID}/transactions", h.listTransactions)
	mux.HandleFunc("GET /v1/messes/{messID}/pending-count", h.pendingCount)
	mux.HandleFunc("POST /v1/transactions/{txID}/approve", h.transition(actionApprove))
	mux.HandleFunc("POST /v1/transactions/{txID}/reject", h.transition(actionReject))
	mux.HandleFunc("POST /v1/transactions/{txID}/delete", h.transition(actionDelete))
	mux.HandleFunc("POST /v1/transactions/{txID}/request-deletion", h.transition(actionRequestDeletion))
	mux.HandleFunc("POST /v1/transactions/{txID}/approve-deletion", h.transition(actionApproveDeletion))
	mux.HandleFunc("POST /v1/transactions/{txID}/reject-deletion", h.transition(actionRejectDeletion))

	mux.HandleFunc("GET /v1/messes/{messID}/balance", h.memberBalance)
	mux.HandleFunc("POST /v1/messes/{messID}/balance/recompute", h.recomputeBalance)
	mux.HandleFunc("GET /v1/messes/{messID}/reports/{year}/{month}", h.monthlyReport)

	mux.HandleFunc("POST /v1/tokens", h.registerToken)
	mux.HandleFunc("DELETE /v1/tokens", h.unregisterToken)
	mux.HandleFunc("GET /v1/notifications", h.listNotifications)
	mux.HandleFunc("POST /v1/notifications/{id}/read", h.markNotificationRead)
}

// actor resolves the authenticated user to their membership in the mess.
func (h *Handler) actor(r *http.Request, messID string) (models.Actor, error) {
	userID := middleware.GetUserID(r.Context())
	member, err := h.store.GetMember(r.Context(), messID, userID)
	if err != nil {
		return models.Actor{}, err
	}
	return models.Actor{ID: member.ID, Role: member.Role}, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Validationf("bad request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// writeError maps the error taxonomy to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *errs.ValidationError
		permission *errs.PermissionError
		notFound   *errs.NotFoundError
		locked     *errs.LockedError
		conflict   *errs.StateConflictError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &permission):
		status = http.StatusForbidden
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &locked):
		status = http.StatusLocked
	case errors.As(err, &conflict):
		status = http.StatusConflict
	default:
		slog.Error("internal error", "error", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
