package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adivish/fundlens/internal/contracts"
	"github.com/adivish/fundlens/internal/scorepolicy"
	"github.com/adivish/fundlens/internal/scorestore"
	"github.com/adivish/fundlens/pkg/config"
	"github.com/adivish/fundlens/pkg/logger"
	"github.com/adivish/fundlens/pkg/metrics"
	"github.com/adivish/fundlens/pkg/redis"
)

var testDate = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

// testRedis returns cache and limiter over a disabled client, so every
// cache read misses and every rate limit check passes.
func testRedis(t *testing.T) (*redis.Cache, *redis.RateLimiter) {
	t.Helper()
	client, err := redis.New(&config.Config{})
	require.NoError(t, err)
	return redis.NewCache(client, "test"), redis.NewRateLimiter(client, "test")
}

type fakeScoreRepo struct {
	records []*contracts.ScoreRecord
}

var _ contracts.ScoreRepository = (*fakeScoreRepo)(nil)

func (f *fakeScoreRepo) Upsert(ctx context.Context, rec *contracts.ScoreRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeScoreRepo) GetByDate(ctx context.Context, date time.Time) ([]*contracts.ScoreRecord, error) {
	var out []*contracts.ScoreRecord
	for _, rec := range f.records {
		if rec.ScoreDate.Equal(date) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeScoreRepo) GetByFundAndDate(ctx context.Context, fundID int64, date time.Time) (*contracts.ScoreRecord, error) {
	for _, rec := range f.records {
		if rec.FundID == fundID && rec.ScoreDate.Equal(date) {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("score for fund %d: %w", fundID, contracts.ErrNotFound)
}

func (f *fakeScoreRepo) GetTop(ctx context.Context, date time.Time, subcategory string, limit int) ([]*contracts.ScoreRecord, error) {
	var out []*contracts.ScoreRecord
	for _, rec := range f.records {
		if rec.ScoreDate.Equal(date) && (subcategory == "" || rec.Subcategory == subcategory) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].FundID < out[j].FundID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeScoreRepo) UpdateRanking(ctx context.Context, date time.Time, subcategory string, recs []*contracts.ScoreRecord) error {
	return nil
}

type fakeRunRepo struct {
	runs []*contracts.RunSummary // newest first
}

var _ contracts.RunRepository = (*fakeRunRepo)(nil)

func (f *fakeRunRepo) Create(ctx context.Context, run *contracts.RunSummary) error {
	f.runs = append([]*contracts.RunSummary{run}, f.runs...)
	return nil
}

func (f *fakeRunRepo) Finish(ctx context.Context, run *contracts.RunSummary) error {
	return nil
}

func (f *fakeRunRepo) GetLatest(ctx context.Context, limit int) ([]*contracts.RunSummary, error) {
	if limit > len(f.runs) {
		limit = len(f.runs)
	}
	return f.runs[:limit], nil
}

func (f *fakeRunRepo) GetByID(ctx context.Context, runID string) (*contracts.RunSummary, error) {
	for _, run := range f.runs {
		if run.RunID == runID {
			return run, nil
		}
	}
	return nil, fmt.Errorf("run %s: %w", runID, contracts.ErrNotFound)
}

func completedRun(runID string, date time.Time) *contracts.RunSummary {
	finished := date.Add(2 * time.Hour)
	return &contracts.RunSummary{
		RunID:      runID,
		ScoreDate:  date,
		Trigger:    "cli",
		Status:     contracts.RunCompleted,
		StartedAt:  date.Add(time.Hour),
		FinishedAt: &finished,
	}
}

func scoreRow(fundID int64, subcategory string, total float64) *contracts.ScoreRecord {
	return &contracts.ScoreRecord{
		FundID:         fundID,
		ScoreDate:      testDate,
		Subcategory:    subcategory,
		TotalScore:     total,
		Recommendation: contracts.Hold,
	}
}

func newScoreHandler(t *testing.T, scores *fakeScoreRepo, runs *fakeRunRepo) *ScoreHandler {
	t.Helper()
	log := logger.NewNop()
	cache, limiter := testRedis(t)
	verifier := scorestore.NewVerifier(scores, scorepolicy.Default(), log)
	return NewScoreHandler(scores, runs, verifier, cache, limiter, metrics.New(), log)
}

func serveScores(h *ScoreHandler, target string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/api/scores/top", h.GetTop).Methods("GET")
	r.HandleFunc("/api/scores/verify", h.Verify).Methods("GET")
	r.HandleFunc("/api/scores/fund/{id}", h.GetFund).Methods("GET")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestGetTopReturnsLeaderboard(t *testing.T) {
	scores := &fakeScoreRepo{records: []*contracts.ScoreRecord{
		scoreRow(1, "Large Cap", 81.5),
		scoreRow(2, "Large Cap", 64.25),
		scoreRow(3, "Large Cap", 92),
		scoreRow(4, "Mid Cap", 99),
	}}
	h := newScoreHandler(t, scores, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/top?date=2025-06-30&subcategory=Large+Cap&limit=2")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TopScoresResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2025-06-30", resp.ScoreDate)
	assert.Equal(t, "Large Cap", resp.Subcategory)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, int64(3), resp.Funds[0].FundID)
	assert.Equal(t, int64(1), resp.Funds[1].FundID)
}

func TestGetTopDefaultsToLatestRunDate(t *testing.T) {
	scores := &fakeScoreRepo{records: []*contracts.ScoreRecord{scoreRow(1, "Large Cap", 70)}}
	runs := &fakeRunRepo{runs: []*contracts.RunSummary{completedRun("run-1", testDate)}}
	h := newScoreHandler(t, scores, runs)

	w := serveScores(h, "/api/scores/top")
	require.Equal(t, http.StatusOK, w.Code)

	var resp TopScoresResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2025-06-30", resp.ScoreDate)
	assert.Equal(t, 1, resp.Count)
}

func TestGetTopWithoutRunsOrDate(t *testing.T) {
	h := newScoreHandler(t, &fakeScoreRepo{}, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/top")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTopRejectsBadParams(t *testing.T) {
	h := newScoreHandler(t, &fakeScoreRepo{}, &fakeRunRepo{})

	assert.Equal(t, http.StatusBadRequest, serveScores(h, "/api/scores/top?date=tomorrow").Code)
	assert.Equal(t, http.StatusBadRequest, serveScores(h, "/api/scores/top?date=2025-06-30&limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, serveScores(h, "/api/scores/top?date=2025-06-30&limit=many").Code)
}

func TestGetFundReturnsScore(t *testing.T) {
	scores := &fakeScoreRepo{records: []*contracts.ScoreRecord{scoreRow(42, "Flexi Cap", 77.5)}}
	h := newScoreHandler(t, scores, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/fund/42?date=2025-06-30")
	require.Equal(t, http.StatusOK, w.Code)

	var rec contracts.ScoreRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	assert.Equal(t, int64(42), rec.FundID)
	assert.Equal(t, 77.5, rec.TotalScore)
}

func TestGetFundNotFound(t *testing.T) {
	h := newScoreHandler(t, &fakeScoreRepo{}, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/fund/42?date=2025-06-30")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetFundRejectsBadID(t *testing.T) {
	h := newScoreHandler(t, &fakeScoreRepo{}, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/fund/notanumber?date=2025-06-30")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyCleanDate(t *testing.T) {
	h := newScoreHandler(t, &fakeScoreRepo{}, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/verify?date=2025-06-30")
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Clean)
	assert.Empty(t, resp.Violations)
}

func TestVerifyReportsViolations(t *testing.T) {
	// Component totals sum to 35 while the stored total claims 99.
	bad := scoreRow(7, "Small Cap", 99)
	bad.HistoricalReturnsTotal = 20
	bad.RiskGradeTotal = 10
	bad.FundamentalsTotal = 5
	h := newScoreHandler(t, &fakeScoreRepo{records: []*contracts.ScoreRecord{bad}}, &fakeRunRepo{})

	w := serveScores(h, "/api/scores/verify?date=2025-06-30")
	require.Equal(t, http.StatusOK, w.Code)

	var resp VerifyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Clean)
	assert.NotEmpty(t, resp.Violations)
}
