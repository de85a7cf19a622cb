package models

// TargetManager is the special notification target that resolves to every
// member holding the manager role in the mess.
const TargetManager = "manager"

// Notification is one delivered notification in a user's feed.
// The fanout creates one row per resolved recipient.
type Notification struct {
	ID        string
	MessID    string
	UserID    string
	Message   string
	Link      string
	IsRead    bool
	CreatedAt int64
}

// DeviceToken is a push registration owned by exactly one user at a time.
// Tokens are added on registration and removed when the push service reports
// the registration permanently invalid.
type DeviceToken struct {
	Token     string
	UserID    string
	CreatedAt int64
}
