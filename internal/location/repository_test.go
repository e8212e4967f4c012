package location

import (
	"context"
	"testing"
	"time"

	"getir-be/internal/apperr"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_CreateFirstBecomesDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM delivery_locations WHERE user_id = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE delivery_locations SET is_default = FALSE WHERE user_id = \$1 AND is_default`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO delivery_locations`).
		WithArgs(7, "Home", "12 Nile St", nil, nil, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectCommit()

	loc := &DeliveryLocation{UserID: 7, Label: "Home", Address: "12 Nile St"}
	require.NoError(t, NewRepository(db).Create(context.Background(), loc))
	assert.True(t, loc.IsDefault)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteDefaultPromotesNewest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM delivery_locations WHERE id = \$1 AND user_id = \$2 RETURNING is_default`).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"is_default"}).AddRow(true))
	mock.ExpectExec(`UPDATE delivery_locations SET is_default = TRUE WHERE id = \(SELECT id FROM delivery_locations WHERE user_id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM delivery_locations`).
		WithArgs(4, 7).
		WillReturnRows(sqlmock.NewRows([]string{"is_default"}))
	mock.ExpectRollback()

	require.NoError(t, repo.Delete(context.Background(), 7, 3))
	assert.ErrorIs(t, repo.Delete(context.Background(), 7, 4), apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
