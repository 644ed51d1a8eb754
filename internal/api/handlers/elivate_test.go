package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/elivate"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
)

type fakeStanceStore struct {
	current *elivate.Score
}

var _ elivate.Store = (*fakeStanceStore)(nil)

func (f *fakeStanceStore) LatestReadings(ctx context.Context, asOf time.Time) (map[string]float64, error) {
	return nil, nil
}

func (f *fakeStanceStore) Upsert(ctx context.Context, score *elivate.Score) error {
	f.current = score
	return nil
}

func (f *fakeStanceStore) GetCurrent(ctx context.Context) (*elivate.Score, error) {
	if f.current == nil {
		return nil, fmt.Errorf("no elivate scores stored: %w", contracts.ErrNotFound)
	}
	return f.current, nil
}

func newElivateHandler(t *testing.T, store *fakeStanceStore) *ElivateHandler {
	t.Helper()
	log := logger.NewNop()
	cache, _ := testRedis(t)
	return NewElivateHandler(elivate.NewService(store, log), cache, metrics.New(), log)
}

func serveElivate(h *ElivateHandler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.GetCurrent(w, httptest.NewRequest(http.MethodGet, "/api/elivate/current", nil))
	return w
}

func TestGetCurrentStance(t *testing.T) {
	store := &fakeStanceStore{current: &elivate.Score{
		ScoreDate: testDate,
		Total:     81.2,
		Stance:    elivate.StanceBullish,
	}}
	h := newElivateHandler(t, store)

	w := serveElivate(h)
	require.Equal(t, http.StatusOK, w.Code)

	var score elivate.Score
	require.NoError(t, json.NewDecoder(w.Body).Decode(&score))
	assert.Equal(t, 81.2, score.Total)
	assert.Equal(t, elivate.StanceBullish, score.Stance)
}

func TestGetCurrentStanceMissing(t *testing.T) {
	h := newElivateHandler(t, &fakeStanceStore{})

	w := serveElivate(h)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
