package user

import (
	"context"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
)

func (r *repository) IsAdminPhone(ctx context.Context, phone string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_access WHERE phone = $1)`, phone).Scan(&ok)
	return ok, err
}

func (r *repository) ListAdminAccess(ctx context.Context) ([]AdminAccess, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT phone, note, created_at FROM admin_access ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdminAccess
	for rows.Next() {
		var a AdminAccess
		if err := rows.Scan(&a.Phone, &a.Note, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) AddAdminAccess(ctx context.Context, phone, note string) (*AdminAccess, error) {
	a := AdminAccess{Phone: phone, Note: note}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO admin_access (phone, note) VALUES ($1, $2) RETURNING created_at`,
		phone, note,
	).Scan(&a.CreatedAt)
	if db.IsUniqueViolation(err, "admin_access_pkey") {
		return nil, fmt.Errorf("%w: phone already allowed", apperr.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) RemoveAdminAccess(ctx context.Context, phone string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM admin_access WHERE phone = $1`, phone)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: admin access for %s", apperr.ErrNotFound, phone)
	}
	return nil
}
