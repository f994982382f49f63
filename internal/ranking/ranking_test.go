package ranking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingresso/internal/candidate"
	id "ingresso/pkg/domain"
)

func app(overall, essay, subjectA float64, birth time.Time) *candidate.Application {
	return &candidate.Application{
		ID:        id.ApplicationID(uuid.New()),
		BirthDate: birth,
		Score:     candidate.Score{Overall: overall, Essay: essay, SubjectA: subjectA},
	}
}

func TestRank_ComparatorPriority(t *testing.T) {
	birth := time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("overall score dominates", func(t *testing.T) {
		low := app(600, 900, 900, birth)
		high := app(700, 100, 100, birth)
		ranked := Rank([]*candidate.Application{low, high})
		assert.Equal(t, high.ID, ranked[0].ID)
		assert.Equal(t, 1, ranked[0].Score.Rank)
		assert.Equal(t, 2, ranked[1].Score.Rank)
	})

	t.Run("essay breaks overall ties", func(t *testing.T) {
		weaker := app(700, 500, 900, birth)
		stronger := app(700, 600, 100, birth)
		ranked := Rank([]*candidate.Application{weaker, stronger})
		assert.Equal(t, stronger.ID, ranked[0].ID)
	})

	t.Run("subject A breaks essay ties", func(t *testing.T) {
		weaker := app(700, 600, 500, birth)
		stronger := app(700, 600, 550, birth)
		ranked := Rank([]*candidate.Application{weaker, stronger})
		assert.Equal(t, stronger.ID, ranked[0].ID)
	})

	t.Run("older candidate wins full score ties", func(t *testing.T) {
		younger := app(700, 600, 500, time.Date(2004, 6, 15, 0, 0, 0, 0, time.UTC))
		older := app(700, 600, 500, time.Date(1998, 6, 15, 0, 0, 0, 0, time.UTC))
		ranked := Rank([]*candidate.Application{younger, older})
		assert.Equal(t, older.ID, ranked[0].ID)
	})
}

func TestRank_DenseRanks(t *testing.T) {
	birth := time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC)
	a := app(700, 600, 500, birth)
	b := app(700, 600, 500, birth) // full tie with a
	c := app(650, 600, 500, birth)

	ranked := Rank([]*candidate.Application{a, b, c})

	assert.Equal(t, 1, ranked[0].Score.Rank)
	assert.Equal(t, 1, ranked[1].Score.Rank)
	// Dense: the next distinct key gets rank 2, not 3.
	assert.Equal(t, 2, ranked[2].Score.Rank)
}

func TestRank_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var apps []*candidate.Application
	for i := 0; i < 50; i++ {
		apps = append(apps, app(
			float64(rng.Intn(400)+400),
			float64(rng.Intn(1000)),
			float64(rng.Intn(1000)),
			time.Date(1990+rng.Intn(15), time.Month(rng.Intn(12)+1), rng.Intn(28)+1, 0, 0, 0, 0, time.UTC),
		))
	}

	first := Rank(apps)
	wantRanks := make(map[id.ApplicationID]int, len(first))
	for _, a := range first {
		wantRanks[a.ID] = a.Score.Rank
	}

	t.Run("re-ranking an unchanged set is idempotent", func(t *testing.T) {
		again := Rank(apps)
		for _, a := range again {
			assert.Equal(t, wantRanks[a.ID], a.Score.Rank)
		}
	})

	t.Run("input order does not change assigned ranks", func(t *testing.T) {
		shuffled := make([]*candidate.Application, len(apps))
		copy(shuffled, apps)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		ranked := Rank(shuffled)
		require.Len(t, ranked, len(apps))
		for _, a := range ranked {
			assert.Equal(t, wantRanks[a.ID], a.Score.Rank)
		}
	})
}
