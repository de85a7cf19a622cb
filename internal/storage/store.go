// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"messbook/internal/models"
)

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	// Kind limits results to deposits or expenses when non-empty.
	Kind models.TransactionKind
	// Statuses limits results to the given states; empty means all.
	Statuses []models.TransactionStatus
	// MemberID limits results to one member when non-empty.
	MemberID string
}

// Page is a keyset cursor position: the date and id of the last record of
// the previous page. Zero value means "first page".
type Page struct {
	AfterDate string
	AfterID   string
	Limit     int
}

// Store defines the interface for mess data storage.
// This abstraction allows swapping storage backends without changing the
// service layer. All single-record mutations are atomic.
type Store interface {
	// Messes.
	CreateMess(ctx context.Context, mess *models.Mess) error
	GetMess(ctx context.Context, messID string) (*models.Mess, error)
	GetMessByInviteCode(ctx context.Context, code string) (*models.Mess, error)
	// TransferManager atomically demotes the current manager, promotes the
	// new one and updates the mess record.
	TransferManager(ctx context.Context, messID, fromID, toID string) error

	// Members.
	CreateMember(ctx context.Context, member *models.Member) error
	GetMember(ctx context.Context, messID, memberID string) (*models.Member, error)
	ListMembers(ctx context.Context, messID string) ([]*models.Member, error)
	ListMembersByRole(ctx context.Context, messID string, role models.Role) ([]*models.Member, error)
	// UpdateMemberBalance refreshes the denormalized balance cache.
	UpdateMemberBalance(ctx context.Context, messID, memberID string, balance float64) error

	// Meal settings.
	GetMealSettings(ctx context.Context, messID string) (*models.MealSettings, error)
	PutMealSettings(ctx context.Context, settings *models.MealSettings) error

	// Meal statuses. UpsertMealStatus fully replaces the row for its key.
	UpsertMealStatus(ctx context.Context, status *models.MealStatus) error
	GetMealStatus(ctx context.Context, messID, memberID, date string) (*models.MealStatus, error)
	ListMealStatuses(ctx context.Context, messID, memberID, fromDate, toDate string) ([]*models.MealStatus, error)
	// SumMeals totals all six count columns over the date range (inclusive),
	// mess-wide or for one member when memberID is non-empty.
	SumMeals(ctx context.Context, messID, memberID, fromDate, toDate string) (float64, error)

	// Transactions.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)
	// UpdateTransactionStatus transitions status from "from" to "to" and
	// reports a StateConflictError if the record is no longer in "from".
	UpdateTransactionStatus(ctx context.Context, txID string, from, to models.TransactionStatus) error
	DeleteTransaction(ctx context.Context, txID string) error
	ListTransactions(ctx context.Context, messID string, filter TransactionFilter) ([]*models.Transaction, error)
	// ListTransactionsPage returns one keyset page ordered by date then id,
	// both descending.
	ListTransactionsPage(ctx context.Context, messID string, page Page) ([]*models.Transaction, error)
	// SumApproved totals approved and deletion-requested amounts of a kind
	// over the date range, mess-wide or for one member when memberID is
	// non-empty. Deletion-requested records keep counting until the deletion
	// is approved.
	SumApproved(ctx context.Context, messID, memberID string, kind models.TransactionKind, fromDate, toDate string) (float64, error)
	// CountPendingReview counts records awaiting manager action
	// (pending plus deletion_requested).
	CountPendingReview(ctx context.Context, messID string) (int, error)

	// Device tokens.
	AddDeviceToken(ctx context.Context, userID, token string) error
	RemoveDeviceToken(ctx context.Context, token string) error
	ListDeviceTokens(ctx context.Context, userIDs []string) ([]*models.DeviceToken, error)

	// Notifications.
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error

	// Close releases any resources held by the store.
	Close() error
}
