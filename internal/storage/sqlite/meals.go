package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"messbook/internal/models"
)

// UpsertMealStatus fully replaces the meal-status row for its key.
// Last write wins; there is no field-level merge.
func (s *SQLiteStore) UpsertMealStatus(ctx context.Context, status *models.MealStatus) error {
	if status.UpdatedAt == 0 {
		status.UpdatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meal_statuses
		   (mess_id, member_id, date, breakfast, lunch, dinner,
		    guest_breakfast, guest_lunch, guest_dinner, set_by_user, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(mess_id, member_id, date) DO UPDATE SET
		   breakfast = excluded.breakfast,
		   lunch = excluded.lunch,
		   dinner = excluded.dinner,
		   guest_breakfast = excluded.guest_breakfast,
		   guest_lunch = excluded.guest_lunch,
		   guest_dinner = excluded.guest_dinner,
		   set_by_user = excluded.set_by_user,
		   updated_at = excluded.updated_at`,
		status.MessID, status.MemberID, status.Date,
		status.Breakfast, status.Lunch, status.Dinner,
		status.GuestBreakfast, status.GuestLunch, status.GuestDinner,
		status.IsSetByUser, status.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert meal status: %w", err)
	}
	return nil
}

// GetMealStatus retrieves the meal status for one key, or nil if absent.
// Absence is not an error: days with no record read as all zeros upstream.
func (s *SQLiteStore) GetMealStatus(ctx context.Context, messID, memberID, date string) (*models.MealStatus, error) {
	status := &models.MealStatus{}
	err := s.db.QueryRowContext(ctx,
		`SELECT mess_id, member_id, date, breakfast, lunch, dinner,
		        guest_breakfast, guest_lunch, guest_dinner, set_by_user, updated_at
		 FROM meal_statuses WHERE mess_id = ? AND member_id = ? AND date = ?`,
		messID, memberID, date,
	).Scan(&status.MessID, &status.MemberID, &status.Date,
		&status.Breakfast, &status.Lunch, &status.Dinner,
		&status.GuestBreakfast, &status.GuestLunch, &status.GuestDinner,
		&status.IsSetByUser, &status.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal status: %w", err)
	}
	return status, nil
}

// ListMealStatuses retrieves a member's meal statuses in [fromDate, toDate],
// chronologically ordered. Days without a record are simply absent.
func (s *SQLiteStore) ListMealStatuses(ctx context.Context, messID, memberID, fromDate, toDate string) ([]*models.MealStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mess_id, member_id, date, breakfast, lunch, dinner,
		        guest_breakfast, guest_lunch, guest_dinner, set_by_user, updated_at
		 FROM meal_statuses
		 WHERE mess_id = ? AND member_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date`,
		messID, memberID, fromDate, toDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal statuses: %w", err)
	}
	defer rows.Close()

	var statuses []*models.MealStatus
	for rows.Next() {
		status := &models.MealStatus{}
		if err := rows.Scan(&status.MessID, &status.MemberID, &status.Date,
			&status.Breakfast, &status.Lunch, &status.Dinner,
			&status.GuestBreakfast, &status.GuestLunch, &status.GuestDinner,
			&status.IsSetByUser, &status.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal status: %w", err)
		}
		statuses = append(statuses, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal statuses: %w", err)
	}
	return statuses, nil
}

// SumMeals totals all six count columns over [fromDate, toDate].
// An empty memberID sums mess-wide.
func (s *SQLiteStore) SumMeals(ctx context.Context, messID, memberID, fromDate, toDate string) (float64, error) {
	query := `SELECT COALESCE(SUM(breakfast + lunch + dinner + guest_breakfast + guest_lunch + guest_dinner), 0)
	          FROM meal_statuses WHERE mess_id = ? AND date BETWEEN ? AND ?`
	args := []any{messID, fromDate, toDate}
	if memberID != "" {
		query += " AND member_id = ?"
		args = append(args, memberID)
	}

	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum meals: %w", err)
	}
	return total, nil
}
