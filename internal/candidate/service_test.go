package candidate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ingresso/internal/edition"
	"ingresso/internal/seat"
	id "ingresso/pkg/domain"
	dErrors "ingresso/pkg/domain-errors"
	"ingresso/pkg/platform/tx"
)

type ImportServiceSuite struct {
	suite.Suite

	ctx      context.Context
	editions *edition.MemoryStore
	seats    *seat.MemoryStore
	apps     *MemoryStore
	service  *Service
}

func TestImportServiceSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceSuite))
}

func (s *ImportServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.editions = edition.NewMemoryStore()
	s.seats = seat.NewMemoryStore()
	s.apps = NewMemoryStore()
	s.service = NewService(s.apps, s.editions, s.seats, tx.NewMemoryRunner())
}

func (s *ImportServiceSuite) TestCreateEdition() {
	courseID := id.CourseID(uuid.New())

	s.Run("creates the edition and seeds its seats", func() {
		e, err := s.service.CreateEdition(s.ctx, CreateEditionParams{
			ProcessName: "PS",
			Year:        2026,
			Seats: []SeatGroupParams{
				{CourseID: courseID, Track: "Open", Count: 3},
				{CourseID: courseID, Track: "Quota", Count: 2},
			},
		})
		s.Require().NoError(err)

		stored, err := s.editions.Get(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal("PS", stored.ProcessName)

		free, err := s.seats.CountFree(s.ctx, e.ID, courseID, "Open")
		s.Require().NoError(err)
		s.Equal(3, free)

		groups, err := s.seats.ListGroups(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Len(groups, 2)
	})

	s.Run("rejects a missing process name", func() {
		_, err := s.service.CreateEdition(s.ctx, CreateEditionParams{Year: 2026})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a non-positive seat count", func() {
		_, err := s.service.CreateEdition(s.ctx, CreateEditionParams{
			ProcessName: "PS",
			Year:        2026,
			Seats:       []SeatGroupParams{{CourseID: courseID, Track: "Open", Count: 0}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ImportServiceSuite) TestImportApplications() {
	courseID := id.CourseID(uuid.New())
	e, err := s.service.CreateEdition(s.ctx, CreateEditionParams{ProcessName: "PS", Year: 2026})
	s.Require().NoError(err)

	s.Run("imports a batch with unset ranks", func() {
		apps, err := s.service.ImportApplications(s.ctx, e.ID, []ImportApplication{
			{CourseID: courseID, Track: "Open", Name: "Ana", BirthDate: time.Date(2004, 5, 1, 0, 0, 0, 0, time.UTC), Score: Score{Overall: 900}},
			{CourseID: courseID, Track: "Open", Name: "Bruno", Score: Score{Overall: 800}},
		})
		s.Require().NoError(err)
		s.Len(apps, 2)

		count, err := s.apps.CountByEdition(s.ctx, e.ID)
		s.Require().NoError(err)
		s.Equal(2, count)

		stored, err := s.apps.Get(s.ctx, apps[0].ID)
		s.Require().NoError(err)
		s.Equal(0, stored.Score.Rank)
		s.Nil(stored.CallID)
	})

	s.Run("rejects an unknown edition", func() {
		_, err := s.service.ImportApplications(s.ctx, id.EditionID(uuid.New()), []ImportApplication{
			{CourseID: courseID, Track: "Open", Name: "Ana"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects an empty batch", func() {
		_, err := s.service.ImportApplications(s.ctx, e.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects incomplete rows", func() {
		_, err := s.service.ImportApplications(s.ctx, e.ID, []ImportApplication{
			{CourseID: courseID, Track: "", Name: "Ana"},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.ImportApplications(s.ctx, e.ID, []ImportApplication{
			{CourseID: courseID, Track: "Open", Name: "Ana", Score: Score{Essay: -1}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
