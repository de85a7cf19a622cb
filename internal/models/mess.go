package models

// Role is a member's permission level within a mess.
type Role string

const (
	// RoleManager is the single elevated member: approves transactions,
	// deletes records directly, edits meals past cutoff, transfers the role.
	RoleManager Role = "manager"

	// RoleMember is everyone else.
	RoleMember Role = "member"
)

// Mess represents a group of people sharing communal meals and expenses.
type Mess struct {
	// ID is the unique identifier for the mess (UUID format).
	ID string

	// Name is the display name of the mess (e.g., "Green House 3rd Floor").
	Name string

	// ManagerID is the member currently holding the manager role.
	// Invariant: exactly one manager at any time; changed only by transfer.
	ManagerID string

	// InviteCode is the short code members use to join this mess.
	InviteCode string

	// CreatedAt is the Unix timestamp when the mess was created.
	CreatedAt int64
}

// Member represents a person belonging to a mess.
type Member struct {
	// ID is the identity provider's stable subject id (opaque string).
	ID string

	// MessID is the mess this member belongs to.
	MessID string

	// DisplayName comes from the identity provider.
	DisplayName string

	// PhotoURL is an opaque URL supplied by the identity provider. May be empty.
	PhotoURL string

	// Role is the member's permission level.
	Role Role

	// Balance is a denormalized cache of deposits minus meal cost for the
	// current month. It is never authoritative; see the balance engine.
	Balance float64

	// CreatedAt is the Unix timestamp when the member joined.
	CreatedAt int64
}

// Actor identifies who is performing an operation, for permission checks.
type Actor struct {
	ID   string
	Role Role
}

// IsManager reports whether the actor holds the manager role.
func (a Actor) IsManager() bool { return a.Role == RoleManager }
