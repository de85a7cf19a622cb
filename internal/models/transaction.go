package models

// TransactionKind distinguishes deposits from expenses.
type TransactionKind string

const (
	KindDeposit TransactionKind = "deposit"
	KindExpense TransactionKind = "expense"
)

// TransactionStatus is the approval-workflow state of a transaction.
type TransactionStatus string

const (
	// StatusPending: submitted by a non-manager, awaiting manager review.
	// Pending records never participate in balance or report computation.
	StatusPending TransactionStatus = "pending"

	// StatusApproved: visible to the balance engine and reports.
	StatusApproved TransactionStatus = "approved"

	// StatusDeletionRequested: the owner asked for removal. The record stays
	// counted in balances until the manager approves the deletion.
	StatusDeletionRequested TransactionStatus = "deletion_requested"
)

// Transaction is a deposit or expense owned by a member.
type Transaction struct {
	// ID is the unique identifier (UUID format).
	ID string

	// MessID is the mess this transaction belongs to.
	MessID string

	// MemberID is the member the amount is attributed to.
	MemberID string

	// Kind is deposit or expense.
	Kind TransactionKind

	// Amount is strictly positive.
	Amount float64

	// Description is required for expenses (e.g., "Weekly groceries").
	Description string

	// ReceiptURL is an opaque URL stored for expenses. Upload and compression
	// happen outside the core; we only keep the string.
	ReceiptURL string

	// Date is the calendar date the transaction applies to, in DateLayout.
	Date string

	// Status is the approval-workflow state.
	Status TransactionStatus

	// CreatedBy is the actor who submitted the record. Usually equal to
	// MemberID, but a manager may record a transaction on a member's behalf.
	CreatedBy string

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64
}
