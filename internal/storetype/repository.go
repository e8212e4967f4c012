package storetype

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
)

type Repository interface {
	List(ctx context.Context, includeInactive bool) ([]StoreType, error)
	GetByID(ctx context.Context, id uint) (*StoreType, error)
	Create(ctx context.Context, in Input) (*StoreType, error)
	Update(ctx context.Context, id uint, in Input) (*StoreType, error)
	Delete(ctx context.Context, id uint) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const columns = `id, name_ar, name_en, icon, sort_order, is_active`

func scan(row interface{ Scan(...any) error }) (*StoreType, error) {
	var t StoreType
	if err := row.Scan(&t.ID, &t.NameAr, &t.NameEn, &t.Icon, &t.SortOrder, &t.IsActive); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repository) List(ctx context.Context, includeInactive bool) ([]StoreType, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+columns+` FROM store_types
		WHERE $1 OR is_active
		ORDER BY sort_order ASC, id ASC`, includeInactive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []StoreType{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uint) (*StoreType, error) {
	t, err := scan(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM store_types WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: store type %d", apperr.ErrNotFound, id)
	}
	return t, err
}

func (r *repository) Create(ctx context.Context, in Input) (*StoreType, error) {
	return scan(r.db.QueryRowContext(ctx, `
		INSERT INTO store_types (name_ar, name_en, icon, sort_order, is_active)
		VALUES ($1, $2, $3, $4, COALESCE($5, TRUE))
		RETURNING `+columns,
		in.NameAr, in.NameEn, in.Icon, in.SortOrder, in.IsActive))
}

func (r *repository) Update(ctx context.Context, id uint, in Input) (*StoreType, error) {
	t, err := scan(r.db.QueryRowContext(ctx, `
		UPDATE store_types
		SET name_ar = $2, name_en = $3, icon = $4, sort_order = $5, is_active = COALESCE($6, is_active)
		WHERE id = $1
		RETURNING `+columns,
		id, in.NameAr, in.NameEn, in.Icon, in.SortOrder, in.IsActive))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: store type %d", apperr.ErrNotFound, id)
	}
	return t, err
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM store_types WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: store type is used by stores", apperr.ErrConflict)
		}
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: store type %d", apperr.ErrNotFound, id)
	}
	return nil
}
