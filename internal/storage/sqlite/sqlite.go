// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"messbook/internal/errs"
	"messbook/internal/models"
	"messbook/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateMess persists a new mess.
func (s *SQLiteStore) CreateMess(ctx context.Context, mess *models.Mess) error {
	if mess.ID == "" {
		mess.ID = uuid.New().String()
	}
	if mess.CreatedAt == 0 {
		mess.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messes (id, name, manager_id, invite_code, created_at) VALUES (?, ?, ?, ?, ?)",
		mess.ID, mess.Name, mess.ManagerID, mess.InviteCode, mess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert mess: %w", err)
	}
	return nil
}

// GetMess retrieves a mess by ID.
func (s *SQLiteStore) GetMess(ctx context.Context, messID string) (*models.Mess, error) {
	return s.getMess(ctx, "id", messID)
}

// GetMessByInviteCode retrieves a mess by its invite code.
func (s *SQLiteStore) GetMessByInviteCode(ctx context.Context, code string) (*models.Mess, error) {
	return s.getMess(ctx, "invite_code", code)
}

func (s *SQLiteStore) getMess(ctx context.Context, column, value string) (*models.Mess, error) {
	mess := &models.Mess{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, manager_id, invite_code, created_at FROM messes WHERE "+column+" = ?",
		value,
	).Scan(&mess.ID, &mess.Name, &mess.ManagerID, &mess.InviteCode, &mess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "mess", ID: value}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mess: %w", err)
	}
	return mess, nil
}

// TransferManager demotes fromID, promotes toID and updates the mess record
// in a single database transaction.
func (s *SQLiteStore) TransferManager(ctx context.Context, messID, fromID, toID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE members SET role = ? WHERE mess_id = ? AND id = ? AND role = ?",
		models.RoleMember, messID, fromID, models.RoleManager,
	)
	if err != nil {
		return fmt.Errorf("failed to demote manager: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errs.NotFoundError{Kind: "member", ID: fromID}
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE members SET role = ? WHERE mess_id = ? AND id = ?",
		models.RoleManager, messID, toID,
	)
	if err != nil {
		return fmt.Errorf("failed to promote manager: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errs.NotFoundError{Kind: "member", ID: toID}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE messes SET manager_id = ? WHERE id = ?", toID, messID,
	); err != nil {
		return fmt.Errorf("failed to update mess manager: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateMember inserts a new member into the database.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	if member.CreatedAt == 0 {
		member.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO members (id, mess_id, display_name, photo_url, role, balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		member.ID, member.MessID, member.DisplayName, member.PhotoURL,
		member.Role, member.Balance, member.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// GetMember retrieves a member by mess and member id.
func (s *SQLiteStore) GetMember(ctx context.Context, messID, memberID string) (*models.Member, error) {
	member := &models.Member{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mess_id, display_name, photo_url, role, balance, created_at
		 FROM members WHERE mess_id = ? AND id = ?`,
		messID, memberID,
	).Scan(&member.ID, &member.MessID, &member.DisplayName, &member.PhotoURL,
		&member.Role, &member.Balance, &member.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "member", ID: memberID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// ListMembers retrieves all members of a mess ordered by join time.
func (s *SQLiteStore) ListMembers(ctx context.Context, messID string) ([]*models.Member, error) {
	return s.listMembers(ctx,
		`SELECT id, mess_id, display_name, photo_url, role, balance, created_at
		 FROM members WHERE mess_id = ? ORDER BY created_at, id`,
		messID)
}

// ListMembersByRole retrieves members of a mess holding the given role.
func (s *SQLiteStore) ListMembersByRole(ctx context.Context, messID string, role models.Role) ([]*models.Member, error) {
	return s.listMembers(ctx,
		`SELECT id, mess_id, display_name, photo_url, role, balance, created_at
		 FROM members WHERE mess_id = ? AND role = ? ORDER BY created_at, id`,
		messID, role)
}

func (s *SQLiteStore) listMembers(ctx context.Context, query string, args ...any) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(&member.ID, &member.MessID, &member.DisplayName, &member.PhotoURL,
			&member.Role, &member.Balance, &member.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// UpdateMemberBalance refreshes the denormalized balance cache.
func (s *SQLiteStore) UpdateMemberBalance(ctx context.Context, messID, memberID string, balance float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET balance = ? WHERE mess_id = ? AND id = ?",
		balance, messID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errs.NotFoundError{Kind: "member", ID: memberID}
	}
	return nil
}

// GetMealSettings retrieves the meal settings for a mess.
func (s *SQLiteStore) GetMealSettings(ctx context.Context, messID string) (*models.MealSettings, error) {
	settings := &models.MealSettings{}
	err := s.db.QueryRowContext(ctx,
		`SELECT mess_id, breakfast_on, lunch_on, dinner_on,
		        breakfast_cutoff, lunch_cutoff, dinner_cutoff, timezone
		 FROM meal_settings WHERE mess_id = ?`,
		messID,
	).Scan(&settings.MessID, &settings.IsBreakfastOn, &settings.IsLunchOn, &settings.IsDinnerOn,
		&settings.BreakfastCutoff, &settings.LunchCutoff, &settings.DinnerCutoff, &settings.Timezone)
	if err == sql.ErrNoRows {
		return nil, &errs.NotFoundError{Kind: "meal settings", ID: messID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal settings: %w", err)
	}
	return settings, nil
}

// PutMealSettings inserts or fully replaces the meal settings for a mess.
func (s *SQLiteStore) PutMealSettings(ctx context.Context, settings *models.MealSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meal_settings
		   (mess_id, breakfast_on, lunch_on, dinner_on, breakfast_cutoff, lunch_cutoff, dinner_cutoff, timezone)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(mess_id) DO UPDATE SET
		   breakfast_on = excluded.breakfast_on,
		   lunch_on = excluded.lunch_on,
		   dinner_on = excluded.dinner_on,
		   breakfast_cutoff = excluded.breakfast_cutoff,
		   lunch_cutoff = excluded.lunch_cutoff,
		   dinner_cutoff = excluded.dinner_cutoff,
		   timezone = excluded.timezone`,
		settings.MessID, settings.IsBreakfastOn, settings.IsLunchOn, settings.IsDinnerOn,
		settings.BreakfastCutoff, settings.LunchCutoff, settings.DinnerCutoff, settings.Timezone,
	)
	if err != nil {
		return fmt.Errorf("failed to put meal settings: %w", err)
	}
	return nil
}
