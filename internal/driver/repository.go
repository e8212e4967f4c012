package driver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"getir-be/internal/apperr"
	"getir-be/internal/db"
	"getir-be/internal/logger"
	"getir-be/internal/role"
	"getir-be/internal/user"
	"getir-be/internal/utils"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, userID uint, in Input) (*Application, error)
	GetByID(ctx context.Context, id uint) (*Application, error)
	ListByUser(ctx context.Context, userID uint) ([]Application, error)
	List(ctx context.Context, status *Status, limit, page int) ([]Application, int, error)
	// Approve marks a pending application approved and makes its user a
	// driver in the same transaction.
	Approve(ctx context.Context, id, reviewerID uint, notes string) error
	Reject(ctx context.Context, id, reviewerID uint, notes string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const applicationColumns = `a.id, a.user_id, u.name, u.phone, a.personal_photo_url, a.id_photo_url,
	a.vehicle_photo_url, a.vehicle_type, a.status, a.reviewer_id, a.reviewed_at, a.notes, a.created_at`

const applicationFrom = ` FROM driver_applications a JOIN users u ON u.id = a.user_id`

func scanApplication(row interface{ Scan(...any) error }, extra ...any) (*Application, error) {
	var a Application
	dest := []any{
		&a.ID, &a.UserID, &a.UserName, &a.UserPhone, &a.PersonalPhotoURL, &a.IDPhotoURL,
		&a.VehiclePhotoURL, &a.VehicleType, &a.Status, &a.ReviewerID, &a.ReviewedAt, &a.Notes, &a.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) Create(ctx context.Context, userID uint, in Input) (*Application, error) {
	var id uint
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO driver_applications (user_id, personal_photo_url, id_photo_url, vehicle_photo_url, vehicle_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		userID, in.PersonalPhotoURL, in.IDPhotoURL, in.VehiclePhotoURL, in.VehicleType,
	).Scan(&id)
	if db.IsUniqueViolation(err, "driver_applications_one_pending") {
		return nil, fmt.Errorf("%w: an application is already pending", apperr.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Application, error) {
	a, err := scanApplication(r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+applicationFrom+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: driver application %d", apperr.ErrNotFound, id)
	}
	return a, err
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+applicationFrom+` WHERE a.user_id = $1 ORDER BY a.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *repository) List(ctx context.Context, status *Status, limit, page int) ([]Application, int, error) {
	limit, _, offset := utils.Paginate(limit, page)

	var st *string
	if status != nil {
		s := string(*status)
		st = &s
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+applicationColumns+`, COUNT(*) OVER()`+applicationFrom+`
		WHERE ($1::text IS NULL OR a.status = $1)
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3`, st, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out   = []Application{}
		total int
	)
	for rows.Next() {
		a, err := scanApplication(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// review closes a pending application and returns its applicant.
func review(ctx context.Context, tx *sql.Tx, id, reviewerID uint, to Status, notes string) (uint, error) {
	var userID uint
	err := tx.QueryRowContext(ctx, `
		UPDATE driver_applications
		SET status = $1, reviewer_id = $2, reviewed_at = NOW(), notes = $3
		WHERE id = $4 AND status = 'pending'
		RETURNING user_id`,
		to, reviewerID, notes, id,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: application %d is not pending", apperr.ErrConflict, id)
	}
	return userID, err
}

func (r *repository) Approve(ctx context.Context, id, reviewerID uint, notes string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Approve"),
		zap.Uint("application_id", id),
	)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		userID, err := review(ctx, tx, id, reviewerID, StatusApproved, notes)
		if err != nil {
			return err
		}
		upgraded, err := user.UpgradeTypeTx(ctx, tx, userID, role.Driver)
		if err != nil {
			return err
		}
		if !upgraded {
			return fmt.Errorf("%w: user %d is no longer a customer", apperr.ErrConflict, userID)
		}
		log.Info("user promoted to driver", zap.Uint("user_id", userID))
		return nil
	})
	if err != nil {
		log.Warn("approve failed", zap.Error(err))
	}
	return err
}

func (r *repository) Reject(ctx context.Context, id, reviewerID uint, notes string) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := review(ctx, tx, id, reviewerID, StatusRejected, notes)
		return err
	})
}
