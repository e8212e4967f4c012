package notification

import (
	"context"
	"database/sql"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/logger"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context, userID uint, unreadOnly bool, limit, page int) ([]Notification, int, error)
	UnreadCount(ctx context.Context, userID uint) (int, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, id uint) error

	SaveSubscription(ctx context.Context, s *PushSubscription) error
	DeleteSubscription(ctx context.Context, userID uint, endpoint string) error
	ListSubscriptions(ctx context.Context, userID uint) ([]PushSubscription, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, n *Notification) error {
	data := n.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, title, body, type, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		n.UserID, n.Title, n.Body, n.Type, []byte(data),
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *repository) List(ctx context.Context, userID uint, unreadOnly bool, limit, page int) ([]Notification, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Uint("user_id", userID),
	)

	limit, _, offset := utils.Paginate(limit, page)

	query := `
		SELECT id, user_id, title, body, type, data, read_at, created_at, COUNT(*) OVER()
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query notifications", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   = []Notification{}
		total int
	)
	for rows.Next() {
		var (
			n    Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &data, &n.ReadAt, &n.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		n.Data = data
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func (r *repository) UnreadCount(ctx context.Context, userID uint) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&n)
	return n, err
}

func (r *repository) MarkRead(ctx context.Context, userID, id uint) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %d", apperr.ErrNotFound, id)
	}
	return nil
}

func (r *repository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) Delete(ctx context.Context, userID, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %d", apperr.ErrNotFound, id)
	}
	return nil
}

// SaveSubscription upserts by endpoint; a browser re-subscribing under a
// different account moves the endpoint to that account.
func (r *repository) SaveSubscription(ctx context.Context, s *PushSubscription) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE
		SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth
		RETURNING id, created_at`,
		s.UserID, s.Endpoint, s.P256dh, s.Auth,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *repository) DeleteSubscription(ctx context.Context, userID uint, endpoint string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	return err
}

func (r *repository) ListSubscriptions(ctx context.Context, userID uint) ([]PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh, auth, created_at
		FROM push_subscriptions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PushSubscription
	for rows.Next() {
		var s PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
