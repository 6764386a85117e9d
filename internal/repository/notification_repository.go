package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// NotificationRepo stores per-user notifications and admin broadcasts.  A
// broadcast has a NULL user_id and is visible to every administrator.
type NotificationRepo struct{ db *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// visibleTo returns the WHERE fragment and args selecting what actor sees.
func visibleTo(actor model.Actor) (string, []any) {
	if actor.IsAdmin {
		return "(user_id = ? OR user_id IS NULL)", []any{actor.UserID}
	}
	return "user_id = ?", []any{actor.UserID}
}

// CreateTx inserts a notification within tx.
func (r *NotificationRepo) CreateTx(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (user_id, message, is_read, created_at_ms) VALUES (?, ?, ?, ?)`,
		n.RecipientUserID, n.Message, n.IsRead, toMillis(n.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// List returns the notifications visible to actor, newest first.
func (r *NotificationRepo) List(ctx context.Context, actor model.Actor, skip, limit int) ([]*model.Notification, error) {
	where, args := visibleTo(actor)
	skip, limit = pageArgs(skip, limit)
	args = append(args, limit, skip)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, is_read, created_at_ms FROM notifications
		  WHERE `+where+` ORDER BY created_at_ms DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Notification, 0)
	for rows.Next() {
		var (
			n         model.Notification
			userID    sql.NullInt64
			createdMs int64
		)
		if err := rows.Scan(&n.ID, &userID, &n.Message, &n.IsRead, &createdMs); err != nil {
			return nil, err
		}
		if userID.Valid {
			uid := uint64(userID.Int64)
			n.RecipientUserID = &uid
		}
		n.CreatedAt = fromMillis(createdMs)
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead flags one notification as read.  Notifications the actor cannot
// see are NotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, actor model.Actor, id uint64) error {
	where, args := visibleTo(actor)
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE id = ? AND `+where, append([]any{id}, args...)...).Scan(&one)
	if err != nil {
		return notFound(err, "notification")
	}
	_, err = r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllRead flags every notification visible to actor as read and
// returns how many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, actor model.Actor) (int64, error) {
	where, args := visibleTo(actor)
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0 AND `+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UnreadCount counts unread notifications visible to actor.
func (r *NotificationRepo) UnreadCount(ctx context.Context, actor model.Actor) (int, error) {
	where, args := visibleTo(actor)
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = 0 AND `+where, args...).Scan(&n)
	return n, err
}

// NewNotification builds an unread notification for recipient (nil for an
// admin broadcast).
func NewNotification(recipient *uint64, message string, now time.Time) *model.Notification {
	return &model.Notification{RecipientUserID: recipient, Message: message, CreatedAt: now.UTC()}
}
