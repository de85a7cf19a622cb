package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"messbook/internal/errs"
	"messbook/internal/models"
)

// AddDeviceToken registers a push token for a user. A token registered by a
// different user moves over: each token string has exactly one owner.
func (s *SQLiteStore) AddDeviceToken(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_tokens (token, user_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id, created_at = excluded.created_at`,
		token, userID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to add device token: %w", err)
	}
	return nil
}

// RemoveDeviceToken deletes the exact token string from whichever user
// currently holds it. Removing an unknown token is a no-op.
func (s *SQLiteStore) RemoveDeviceToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM device_tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}
	return nil
}

// ListDeviceTokens retrieves the union of tokens registered to the given users.
func (s *SQLiteStore) ListDeviceTokens(ctx context.Context, userIDs []string) ([]*models.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `SELECT token, user_id, created_at FROM device_tokens
	          WHERE user_id IN (?` + repeatPlaceholder(len(userIDs)-1) + `) ORDER BY created_at, token`
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.DeviceToken
	for rows.Next() {
		tok := &models.DeviceToken{}
		if err := rows.Scan(&tok.Token, &tok.UserID, &tok.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device tokens: %w", err)
	}
	return tokens, nil
}

// CreateNotification persists one notification for one recipient.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, mess_id, user_id, message, link, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.MessID, n.UserID, n.Message, n.Link, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications retrieves a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mess_id, user_id, message, link, is_read, created_at
		 FROM notifications WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.MessID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return list, nil
}

// MarkNotificationRead marks one of the user's own notifications as read.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		notificationID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &errs.NotFoundError{Kind: "notification", ID: notificationID}
	}
	return nil
}
