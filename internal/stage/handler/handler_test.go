package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ingresso/internal/candidate"
	"ingresso/internal/stage"
	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/tx"
)

type nopGate struct{}

func (nopGate) CountUnresolved(context.Context, id.StageID) (int, error) { return 0, nil }

type nopPurger struct{}

func (nopPurger) PurgeStage(context.Context, id.StageID) error { return nil }

func setup(t *testing.T) (*chi.Mux, id.EditionID) {
	t.Helper()
	stages := stage.NewMemoryStore()
	candidates := candidate.NewMemoryStore()
	editionID := id.EditionID(uuid.New())
	require.NoError(t, candidates.ImportBatch(context.Background(), []*candidate.Application{{
		ID:        id.ApplicationID(uuid.New()),
		EditionID: editionID,
		CourseID:  id.CourseID(uuid.New()),
		Track:     "AC",
		BirthDate: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}}))

	service := stage.NewService(stages, candidates, nopGate{}, nopPurger{}, tx.NewMemoryRunner())
	h := New(service, zap.NewNop())
	r := chi.NewRouter()
	h.Register(r)
	return r, editionID
}

func createStage(t *testing.T, r http.Handler, editionID id.EditionID) string {
	t.Helper()
	body := fmt.Sprintf(`{"edition_id":%q,"number":1,"multiplier":2}`, editionID.String())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func TestHandleCreate(t *testing.T) {
	r, editionID := setup(t)

	t.Run("creates a stage", func(t *testing.T) {
		body := fmt.Sprintf(`{"edition_id":%q,"number":1,"multiplier":2}`, editionID.String())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["open"])
		assert.Equal(t, editionID.String(), resp["edition_id"])
	})

	t.Run("rejects a malformed edition id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages",
			bytes.NewBufferString(`{"edition_id":"nope","number":1,"multiplier":1}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps validation failures to 422", func(t *testing.T) {
		body := fmt.Sprintf(`{"edition_id":%q,"number":1,"multiplier":0}`, editionID.String())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestHandleCloseAndReopen(t *testing.T) {
	r, editionID := setup(t)
	stageID := createStage(t, r, editionID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages/"+stageID+"/close", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages/"+stageID+"/close", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "closing twice is a validation failure")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages/"+stageID+"/reopen", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages/"+uuid.NewString()+"/reopen", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stages/not-a-uuid/close", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
