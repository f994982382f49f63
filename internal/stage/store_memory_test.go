package stage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/sentinel"
)

func TestMemoryStoreOpenScope(t *testing.T) {
	ctx := context.Background()
	editionID := id.EditionID(uuid.New())

	newStage := func(number int, campus string, open bool) *Stage {
		return &Stage{
			ID:         id.StageID(uuid.New()),
			EditionID:  editionID,
			Number:     number,
			Campus:     campus,
			Open:       open,
			Multiplier: 1,
		}
	}

	t.Run("refuses a second open stage in the same scope", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Create(ctx, newStage(1, "", true)))

		err := store.Create(ctx, newStage(2, "", true))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("allows open stages in different scopes", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Create(ctx, newStage(1, "Norte", true)))
		require.NoError(t, store.Create(ctx, newStage(1, "Sul", true)))

		other := newStage(1, "", true)
		other.EditionID = id.EditionID(uuid.New())
		require.NoError(t, store.Create(ctx, other))
	})

	t.Run("allows a closed stage next to the open one", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Create(ctx, newStage(1, "", true)))

		closed := newStage(2, "", false)
		closedAt := time.Now()
		closed.ClosedAt = &closedAt
		require.NoError(t, store.Create(ctx, closed))
	})

	t.Run("refuses reopening into an occupied scope", func(t *testing.T) {
		store := NewMemoryStore()
		closed := newStage(1, "", false)
		closedAt := time.Now()
		closed.ClosedAt = &closedAt
		require.NoError(t, store.Create(ctx, closed))
		require.NoError(t, store.Create(ctx, newStage(2, "", true)))

		closed.Open = true
		closed.ClosedAt = nil
		require.ErrorIs(t, store.Update(ctx, closed), sentinel.ErrConflict)
	})

	t.Run("updating the open stage itself is not a conflict", func(t *testing.T) {
		store := NewMemoryStore()
		st := newStage(1, "", true)
		require.NoError(t, store.Create(ctx, st))

		st.Public = true
		require.NoError(t, store.Update(ctx, st))
	})
}
