// Package ledger implements the deposit/expense transaction ledger: the
// submit/approve/reject workflow, direct manager deletion, the request-based
// deletion path for everyone else, and keyset pagination over the records.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"messbook/internal/balance"
	"messbook/internal/errs"
	"messbook/internal/metrics"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Notifier dispatches a notification without blocking the caller. The ledger
// mutation is the durable fact; delivery is best-effort and must never roll
// it back.
type Notifier interface {
	Dispatch(messID, target, message, link string)
}

// nopNotifier is used when no fanout is wired (tests, offline tools).
type nopNotifier struct{}

func (nopNotifier) Dispatch(string, string, string, string) {}

// Service provides the transaction-ledger operations.
type Service struct {
	store    storage.Store
	balances *balance.Engine
	notifier Notifier
	now      func() time.Time
}

// New creates a ledger service. notifier may be nil.
func New(store storage.Store, balances *balance.Engine, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{store: store, balances: balances, notifier: notifier, now: time.Now}
}

// SubmitInput carries a new deposit or expense.
type SubmitInput struct {
	Kind        models.TransactionKind
	MemberID    string // defaults to the actor
	Amount      float64
	Description string // required for expenses
	ReceiptURL  string
	Date        string
}

// Submit validates and records a new transaction. Manager submissions are
// approved immediately; everyone else's start pending and go to the manager
// for review.
func (s *Service) Submit(ctx context.Context, actor models.Actor, messID string, in SubmitInput) (*models.Transaction, error) {
	if in.Kind != models.KindDeposit && in.Kind != models.KindExpense {
		return nil, errs.Validationf("unknown transaction kind %q", in.Kind)
	}
	if in.Amount <= 0 {
		return nil, errs.Validationf("amount must be positive, got %v", in.Amount)
	}
	if in.Kind == models.KindExpense && in.Description == "" {
		return nil, errs.Validationf("expense description must not be empty")
	}
	if _, err := time.Parse(models.DateLayout, in.Date); err != nil {
		return nil, errs.Validationf("bad date %q", in.Date)
	}

	memberID := in.MemberID
	if memberID == "" {
		memberID = actor.ID
	}
	if memberID != actor.ID && !actor.IsManager() {
		return nil, &errs.PermissionError{Action: "submit", Msg: "only the manager can record transactions for other members"}
	}
	member, err := s.store.GetMember(ctx, messID, memberID)
	if err != nil {
		return nil, err
	}

	status := models.StatusPending
	if actor.IsManager() {
		status = models.StatusApproved
	}

	tx := &models.Transaction{
		MessID:      messID,
		MemberID:    memberID,
		Kind:        in.Kind,
		Amount:      in.Amount,
		Description: in.Description,
		ReceiptURL:  in.ReceiptURL,
		Date:        in.Date,
		Status:      status,
		CreatedBy:   actor.ID,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	metrics.TransactionsSubmitted.WithLabelValues(string(in.Kind), string(status)).Inc()
	slog.Info("transaction submitted",
		"mess_id", messID, "tx_id", tx.ID, "kind", tx.Kind,
		"amount", tx.Amount, "status", tx.Status, "by", actor.ID)

	if status == models.StatusApproved {
		s.refreshBalance(ctx, messID, memberID)
	} else {
		s.notifier.Dispatch(messID, models.TargetManager,
			fmt.Sprintf("%s submitted a %s of %.2f for approval", member.DisplayName, tx.Kind, tx.Amount),
			"/transactions/"+tx.ID)
	}
	return tx, nil
}

// Approve transitions a pending transaction to approved. Manager only.
func (s *Service) Approve(ctx context.Context, actor models.Actor, txID string) error {
	tx, err := s.managerTransition(ctx, actor, "approve", txID, models.StatusPending, models.StatusApproved)
	if err != nil {
		return err
	}
	s.refreshBalance(ctx, tx.MessID, tx.MemberID)
	s.notifier.Dispatch(tx.MessID, tx.MemberID,
		fmt.Sprintf("Your %s of %.2f was approved", tx.Kind, tx.Amount),
		"/transactions/"+tx.ID)
	return nil
}

// Reject removes a pending transaction without any balance effect. Manager only.
func (s *Service) Reject(ctx context.Context, actor models.Actor, txID string) error {
	tx, err := s.managerRemove(ctx, actor, "reject", txID, models.StatusPending)
	if err != nil {
		return err
	}
	s.notifier.Dispatch(tx.MessID, tx.MemberID,
		fmt.Sprintf("Your %s of %.2f was rejected", tx.Kind, tx.Amount),
		"/transactions")
	return nil
}

// Delete removes an approved or deletion-requested record immediately and
// recomputes the owner's balance. Manager only; non-managers must go through
// RequestDeletion instead.
func (s *Service) Delete(ctx context.Context, actor models.Actor, txID string) error {
	if !actor.IsManager() {
		return &errs.PermissionError{Action: "delete", Msg: "manager role required; request deletion instead"}
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Status == models.StatusPending {
		return &errs.StateConflictError{ID: txID, Current: string(tx.Status), Want: string(models.StatusApproved)}
	}
	if err := s.store.DeleteTransaction(ctx, txID); err != nil {
		return err
	}
	metrics.TransactionTransitions.WithLabelValues("delete").Inc()
	slog.Info("transaction deleted", "mess_id", tx.MessID, "tx_id", txID, "by", actor.ID)
	s.refreshBalance(ctx, tx.MessID, tx.MemberID)
	return nil
}

// RequestDeletion transitions an approved record to deletion_requested.
// Only the record's own creator may call it, and only while not a manager
// (a manager deletes directly). The record keeps counting toward balances
// until the manager approves the deletion.
func (s *Service) RequestDeletion(ctx context.Context, actor models.Actor, txID string) error {
	if actor.IsManager() {
		return &errs.PermissionError{Action: "request deletion", Msg: "managers delete directly"}
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if tx.CreatedBy != actor.ID {
		return &errs.PermissionError{Action: "request deletion", Msg: "only the record's creator can request deletion"}
	}
	if err := s.store.UpdateTransactionStatus(ctx, txID, models.StatusApproved, models.StatusDeletionRequested); err != nil {
		return err
	}
	metrics.TransactionTransitions.WithLabelValues("request_deletion").Inc()
	slog.Info("deletion requested", "mess_id", tx.MessID, "tx_id", txID, "by", actor.ID)
	s.notifier.Dispatch(tx.MessID, models.TargetManager,
		fmt.Sprintf("Deletion requested for a %s of %.2f", tx.Kind, tx.Amount),
		"/transactions/"+tx.ID)
	return nil
}

// ApproveDeletion removes a deletion-requested record and recomputes the
// owner's balance. Manager only.
func (s *Service) ApproveDeletion(ctx context.Context, actor models.Actor, txID string) error {
	tx, err := s.managerRemove(ctx, actor, "approve_deletion", txID, models.StatusDeletionRequested)
	if err != nil {
		return err
	}
	s.refreshBalance(ctx, tx.MessID, tx.MemberID)
	s.notifier.Dispatch(tx.MessID, tx.MemberID,
		fmt.Sprintf("Your %s of %.2f was deleted", tx.Kind, tx.Amount),
		"/transactions")
	return nil
}

// RejectDeletion reverts a deletion-requested record to approved. Manager only.
func (s *Service) RejectDeletion(ctx context.Context, actor models.Actor, txID string) error {
	tx, err := s.managerTransition(ctx, actor, "reject_deletion", txID, models.StatusDeletionRequested, models.StatusApproved)
	if err != nil {
		return err
	}
	s.notifier.Dispatch(tx.MessID, tx.MemberID,
		fmt.Sprintf("Deletion of your %s of %.2f was declined", tx.Kind, tx.Amount),
		"/transactions/"+tx.ID)
	return nil
}

// Get retrieves a transaction by id.
func (s *Service) Get(ctx context.Context, txID string) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, txID)
}

// List retrieves transactions for a mess with optional filtering.
func (s *Service) List(ctx context.Context, messID string, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	return s.store.ListTransactions(ctx, messID, filter)
}

// PendingReviewCount returns the number of records awaiting manager action.
// This is an explicit aggregate query; nothing caches or hand-maintains it.
func (s *Service) PendingReviewCount(ctx context.Context, messID string) (int, error) {
	return s.store.CountPendingReview(ctx, messID)
}

// managerTransition performs a manager-only status transition.
func (s *Service) managerTransition(ctx context.Context, actor models.Actor, action, txID string, from, to models.TransactionStatus) (*models.Transaction, error) {
	if !actor.IsManager() {
		return nil, &errs.PermissionError{Action: action, Msg: "manager role required"}
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransactionStatus(ctx, txID, from, to); err != nil {
		return nil, err
	}
	metrics.TransactionTransitions.WithLabelValues(action).Inc()
	slog.Info("transaction transitioned",
		"mess_id", tx.MessID, "tx_id", txID, "action", action, "by", actor.ID)
	tx.Status = to
	return tx, nil
}

// managerRemove performs a manager-only removal of a record expected to be
// in the given state.
func (s *Service) managerRemove(ctx context.Context, actor models.Actor, action, txID string, want models.TransactionStatus) (*models.Transaction, error) {
	if !actor.IsManager() {
		return nil, &errs.PermissionError{Action: action, Msg: "manager role required"}
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != want {
		return nil, &errs.StateConflictError{ID: txID, Current: string(tx.Status), Want: string(want)}
	}
	if err := s.store.DeleteTransaction(ctx, txID); err != nil {
		return nil, err
	}
	metrics.TransactionTransitions.WithLabelValues(action).Inc()
	slog.Info("transaction removed",
		"mess_id", tx.MessID, "tx_id", txID, "action", action, "by", actor.ID)
	return tx, nil
}

// refreshBalance opportunistically updates the owner's cached balance.
// The cache is not the correctness authority, so a failure here is logged
// and swallowed; Recompute can repair it later.
func (s *Service) refreshBalance(ctx context.Context, messID, memberID string) {
	if s.balances == nil {
		return
	}
	if _, err := s.balances.Recompute(ctx, messID, memberID, s.now()); err != nil {
		slog.Error("balance cache refresh failed",
			"mess_id", messID, "member_id", memberID, "error", err)
	}
}
