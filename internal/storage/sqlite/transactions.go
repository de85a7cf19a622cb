package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

const txColumns = `id, mess_id, member_id, kind, amount, description, receipt_url, date, status, created_by, created_at`

// CreateTransaction persists a new deposit or expense.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt == 0 {
		tx.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.MessID, tx.MemberID, tx.Kind, tx.Amount, tx.Description,
		tx.ReceiptURL, tx.Date, tx.Status, tx.CreatedBy, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (s *SQLiteStore) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, txID,
	).Scan(&tx.ID, &tx.MessID, &tx.MemberID, &tx.Kind, &tx.Amount, &tx.Description,
		&tx.ReceiptURL, &tx.Date, &tx.Status, &tx.CreatedBy, &tx.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "transaction", ID: txID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransactionStatus transitions a transaction from one status to
// another. The compare-and-set in the WHERE clause makes concurrent workflow
// transitions race-safe: the loser sees a StateConflictError.
func (s *SQLiteStore) UpdateTransactionStatus(ctx context.Context, txID string, from, to models.TransactionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET status = ? WHERE id = ? AND status = ?",
		to, txID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		current, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		return &errs.StateConflictError{ID: txID, Current: string(current.Status), Want: string(from)}
	}
	return nil
}

// DeleteTransaction removes a transaction by ID.
func (s *SQLiteStore) DeleteTransaction(ctx context.Context, txID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", txID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errs.NotFoundError{Kind: "transaction", ID: txID}
	}
	return nil
}

// ListTransactions retrieves transactions for a mess, newest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, messID string, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE mess_id = ?`
	args := []any{messID}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.MemberID != "" {
		query += " AND member_id = ?"
		args = append(args, filter.MemberID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN (?" + repeatPlaceholder(len(filter.Statuses)-1) + ")"
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	query += " ORDER BY date DESC, id DESC"

	return s.listTransactions(ctx, query, args...)
}

// ListTransactionsPage returns one keyset page ordered by (date, id) descending.
func (s *SQLiteStore) ListTransactionsPage(ctx context.Context, messID string, page storage.Page) ([]*models.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE mess_id = ?`
	args := []any{messID}

	if page.AfterDate != "" {
		query += " AND (date < ? OR (date = ? AND id < ?))"
		args = append(args, page.AfterDate, page.AfterDate, page.AfterID)
	}
	query += " ORDER BY date DESC, id DESC LIMIT ?"
	args = append(args, page.Limit)

	return s.listTransactions(ctx, query, args...)
}

func (s *SQLiteStore) listTransactions(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		if err := rows.Scan(&tx.ID, &tx.MessID, &tx.MemberID, &tx.Kind, &tx.Amount, &tx.Description,
			&tx.ReceiptURL, &tx.Date, &tx.Status, &tx.CreatedBy, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// SumApproved totals approved amounts of the given kind in [fromDate, toDate].
// Deletion-requested records were once approved and still count until the
// deletion itself is approved. An empty memberID sums mess-wide.
func (s *SQLiteStore) SumApproved(ctx context.Context, messID, memberID string, kind models.TransactionKind, fromDate, toDate string) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM transactions
	          WHERE mess_id = ? AND kind = ? AND status IN (?, ?) AND date BETWEEN ? AND ?`
	args := []any{messID, kind, models.StatusApproved, models.StatusDeletionRequested, fromDate, toDate}
	if memberID != "" {
		query += " AND member_id = ?"
		args = append(args, memberID)
	}

	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum approved %s: %w", kind, err)
	}
	return total, nil
}

// CountPendingReview counts records awaiting manager action.
func (s *SQLiteStore) CountPendingReview(ctx context.Context, messID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE mess_id = ? AND status IN (?, ?)",
		messID, models.StatusPending, models.StatusDeletionRequested,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending review: %w", err)
	}
	return count, nil
}

// repeatPlaceholder returns a string of ", ?" repeated n times.
// Used for building IN clauses with multiple placeholders.
func repeatPlaceholder(n int) string {
	result := ""
	for i := 0; i < n; i++ {
		result += ", ?"
	}
	return result
}
