package seat

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

func TestPostgresOccupy(t *testing.T) {
	ctx := context.Background()
	editionID := id.EditionID(uuid.New())
	courseID := id.CourseID(uuid.New())
	appID := id.ApplicationID(uuid.New())
	seatID := uuid.NewString()

	t.Run("locks and fills the first free seat", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewPostgres(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats`)).
			WithArgs(editionID.String(), courseID.String(), "AC").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(seatID))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET occupied_by = $1 WHERE id = $2`)).
			WithArgs(appID.String(), seatID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		taken, err := store.Occupy(ctx, editionID, courseID, "AC", appID)
		require.NoError(t, err)
		assert.Equal(t, seatID, taken.ID.String())
		require.NotNil(t, taken.OccupiedBy)
		assert.Equal(t, appID, *taken.OccupiedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no free seat maps to the invalid-state sentinel", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewPostgres(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM seats`)).
			WithArgs(editionID.String(), courseID.String(), "AC").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err = store.Occupy(ctx, editionID, courseID, "AC", appID)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRelease(t *testing.T) {
	ctx := context.Background()
	appID := id.ApplicationID(uuid.New())

	t.Run("frees the occupied seat", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewPostgres(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET occupied_by = NULL WHERE occupied_by = $1`)).
			WithArgs(appID.String()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, store.Release(ctx, appID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to free maps to not-found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		store := NewPostgres(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET occupied_by = NULL WHERE occupied_by = $1`)).
			WithArgs(appID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, store.Release(ctx, appID), sentinel.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRetagFree(t *testing.T) {
	ctx := context.Background()
	editionID := id.EditionID(uuid.New())
	courseID := id.CourseID(uuid.New())

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgres(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE seats SET track = $1`)).
		WithArgs("PPI", editionID.String(), courseID.String(), "AC").
		WillReturnResult(sqlmock.NewResult(0, 3))

	moved, err := store.RetagFree(ctx, editionID, courseID, "AC", "PPI")
	require.NoError(t, err)
	assert.Equal(t, 3, moved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
