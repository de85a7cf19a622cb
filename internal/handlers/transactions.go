package handlers

import (
	"net/http"
	"strconv"
	"time"

	"messbook/internal/errs"
	"messbook/internal/ledger"
	"messbook/internal/models"
	"messbook/internal/storage"
)

type transactionView struct {
	ID          string  `json:"id"`
	MemberID    string  `json:"member_id"`
	Kind        string  `json:"kind"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	ReceiptURL  string  `json:"receipt_url,omitempty"`
	Date        string  `json:"date"`
	Status      string  `json:"status"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   int64   `json:"created_at"`
}

func toTransactionView(tx *models.Transaction) transactionView {
	return transactionView{
		ID:          tx.ID,
		MemberID:    tx.MemberID,
		Kind:        string(tx.Kind),
		Amount:      tx.Amount,
		Description: tx.Description,
		ReceiptURL:  tx.ReceiptURL,
		Date:        tx.Date,
		Status:      string(tx.Status),
		CreatedBy:   tx.CreatedBy,
		CreatedAt:   tx.CreatedAt,
	}
}

func (h *Handler) submitTransaction(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Kind        string  `json:"kind"`
		MemberID    string  `json:"member_id"`
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		ReceiptURL  string  `json:"receipt_url"`
		Date        string  `json:"date"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.ledger.Submit(r.Context(), actor, messID, ledger.SubmitInput{
		Kind:        models.TransactionKind(req.Kind),
		MemberID:    req.MemberID,
		Amount:      req.Amount,
		Description: req.Description,
		ReceiptURL:  req.ReceiptURL,
		Date:        req.Date,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionView(tx))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = ledger.DefaultPageSize
	}

	txs, err := h.store.ListTransactionsPage(r.Context(), messID, storage.Page{
		AfterDate: q.Get("after_date"),
		AfterID:   q.Get("after_id"),
		Limit:     limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]transactionView, len(txs))
	for i, tx := range txs {
		views[i] = toTransactionView(tx)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": views,
		"has_more":     len(txs) == limit,
	})
}

func (h *Handler) pendingCount(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	count, err := h.ledger.PendingReviewCount(r.Context(), messID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending_count": count})
}

type transitionAction string

const (
	actionApprove         transitionAction = "approve"
	actionReject          transitionAction = "reject"
	actionDelete          transitionAction = "delete"
	actionRequestDeletion transitionAction = "request-deletion"
	actionApproveDeletion transitionAction = "approve-deletion"
	actionRejectDeletion  transitionAction = "reject-deletion"
)

// transition builds the handler for one workflow action. The mess (and the
// actor's role in it) is resolved from the transaction itself.
func (h *Handler) transition(action transitionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txID := r.PathValue("txID")

		tx, err := h.ledger.Get(r.Context(), txID)
		if err != nil {
			writeError(w, err)
			return
		}
		actor, err := h.actor(r, tx.MessID)
		if err != nil {
			writeError(w, err)
			return
		}

		switch action {
		case actionApprove:
			err = h.ledger.Approve(r.Context(), actor, txID)
		case actionReject:
			err = h.ledger.Reject(r.Context(), actor, txID)
		case actionDelete:
			err = h.ledger.Delete(r.Context(), actor, txID)
		case actionRequestDeletion:
			err = h.ledger.RequestDeletion(r.Context(), actor, txID)
		case actionApproveDeletion:
			err = h.ledger.ApproveDeletion(r.Context(), actor, txID)
		case actionRejectDeletion:
			err = h.ledger.RejectDeletion(r.Context(), actor, txID)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, nil)
	}
}

func (h *Handler) memberBalance(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		memberID = actor.ID
	}
	asOf := time.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse(models.DateLayout, v)
		if err != nil {
			writeError(w, errs.Validationf("bad as_of date %q", v))
			return
		}
		asOf = parsed
	}

	bal, err := h.balances.MemberBalance(r.Context(), messID, memberID, asOf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member_id": memberID, "balance": bal})
}

// recomputeBalance is the explicit repair/audit path for the cached balance
// column.
func (h *Handler) recomputeBalance(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	actor, err := h.actor(r, messID)
	if err != nil {
		writeError(w, err)
		return
	}

	memberID := r.URL.Query().Get("member_id")
	if memberID == "" {
		memberID = actor.ID
	}

	bal, err := h.balances.Recompute(r.Context(), messID, memberID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member_id": memberID, "balance": bal})
}

func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	messID := r.PathValue("messID")
	if _, err := h.actor(r, messID); err != nil {
		writeError(w, err)
		return
	}

	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		writeError(w, errs.Validationf("bad year %q", r.PathValue("year")))
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		writeError(w, errs.Validationf("bad month %q", r.PathValue("month")))
		return
	}

	rep, err := h.reports.Generate(r.Context(), messID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	rows := make([]settlementView, len(rep.Rows))
	for i, row := range rep.Rows {
		rows[i] = settlementView{
			MemberID:      row.MemberID,
			DisplayName:   row.DisplayName,
			TotalMeals:    row.TotalMeals,
			MealCost:      row.MealCost,
			TotalDeposits: row.TotalDeposits,
			FinalBalance:  row.FinalBalance,
		}
	}
	writeJSON(w, http.StatusOK, reportView{
		Year:          rep.Year,
		Month:         rep.Month,
		TotalExpenses: rep.TotalExpenses,
		TotalDeposits: rep.TotalDeposits,
		TotalMeals:    rep.TotalMeals,
		MealRate:      rep.MealRate,
		Rows:          rows,
	})
}

type reportView struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	TotalExpenses float64          `json:"total_expenses"`
	TotalDeposits float64          `json:"total_deposits"`
	TotalMeals    float64          `json:"total_meals"`
	MealRate      float64          `json:"meal_rate"`
	Rows          []settlementView `json:"rows"`
}

type settlementView struct {
	MemberID      string  `json:"member_id"`
	DisplayName   string  `json:"display_name"`
	TotalMeals    float64 `json:"total_meals"`
	MealCost      float64 `json:"meal_cost"`
	TotalDeposits float64 `json:"total_deposits"`
	FinalBalance  float64 `json:"final_balance"`
}
