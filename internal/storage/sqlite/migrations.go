package sqlite

import "database/sql"

// migrations contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS messes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    manager_id TEXT NOT NULL,
    invite_code TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    id TEXT NOT NULL,
    mess_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    photo_url TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    balance REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (mess_id, id),
    FOREIGN KEY (mess_id) REFERENCES messes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS meal_settings (
    mess_id TEXT PRIMARY KEY,
    breakfast_on INTEGER NOT NULL,
    lunch_on INTEGER NOT NULL,
    dinner_on INTEGER NOT NULL,
    breakfast_cutoff TEXT NOT NULL,
    lunch_cutoff TEXT NOT NULL,
    dinner_cutoff TEXT NOT NULL,
    timezone TEXT NOT NULL,
    FOREIGN KEY (mess_id) REFERENCES messes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS meal_statuses (
    mess_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    date TEXT NOT NULL,
    breakfast REAL NOT NULL DEFAULT 0,
    lunch REAL NOT NULL DEFAULT 0,
    dinner REAL NOT NULL DEFAULT 0,
    guest_breakfast REAL NOT NULL DEFAULT 0,
    guest_lunch REAL NOT NULL DEFAULT 0,
    guest_dinner REAL NOT NULL DEFAULT 0,
    set_by_user INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (mess_id, member_id, date),
    FOREIGN KEY (mess_id) REFERENCES messes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    mess_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    amount REAL NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    receipt_url TEXT NOT NULL DEFAULT '',
    date TEXT NOT NULL,
    status TEXT NOT NULL,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (mess_id) REFERENCES messes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS device_tokens (
    token TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    mess_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    message TEXT NOT NULL,
    link TEXT NOT NULL DEFAULT '',
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_members_mess_role ON members(mess_id, role);
CREATE INDEX IF NOT EXISTS idx_meal_statuses_mess_date ON meal_statuses(mess_id, date);
CREATE INDEX IF NOT EXISTS idx_transactions_mess_date ON transactions(mess_id, date DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_mess_status ON transactions(mess_id, status);
CREATE INDEX IF NOT EXISTS idx_device_tokens_user ON device_tokens(user_id);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
