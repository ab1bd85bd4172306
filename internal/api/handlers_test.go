package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/persistence/memory"
	"example.com/fitnesstracker/internal/statistics"
)

type fixture struct {
	mux     *http.ServeMux
	stats   *memory.StatisticsRepository
	trigger *stubTrigger
}

func newFixture() *fixture {
	users := memory.NewUserRepository()
	trainings := memory.NewTrainingRepository()
	stats := memory.NewStatisticsRepository()
	trigger := &stubTrigger{}

	handler := NewHandler(
		domain.NewUserService(users),
		domain.NewTrainingService(trainings, users),
		statistics.NewService(stats),
		trigger,
	)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &fixture{mux: mux, stats: stats, trigger: trigger}
}

func (f *fixture) do(t *testing.T, method, path, body string, scopes ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if scopes != nil {
		claims := &auth.Claims{
			Subject:   "tester",
			Scopes:    map[string]struct{}{},
			ExpiresAt: time.Now().Add(time.Hour),
		}
		for _, s := range scopes {
			claims.Scopes[s] = struct{}{}
		}
		req = req.WithContext(auth.WithClaims(req.Context(), claims))
	}

	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) createUser(t *testing.T, email, birthdate string) UserView {
	t.Helper()

	body := `{"first_name":"Ada","last_name":"Lovelace","email":"` + email + `","birthdate":"` + birthdate + `"}`
	rr := f.do(t, http.MethodPost, "/v1/users", body, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var view UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	return view
}

func TestUserLifecycle(t *testing.T) {
	f := newFixture()
	created := f.createUser(t, "ada@example.com", "1990-12-10")
	require.NotEmpty(t, created.ID)
	require.Equal(t, "1990-12-10", created.Birthdate)

	rr := f.do(t, http.MethodGet, "/v1/users/"+created.ID, "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPut, "/v1/users/"+created.ID, `{"last_name":"King"}`, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, "Ada", updated.FirstName)
	require.Equal(t, "King", updated.LastName)

	rr = f.do(t, http.MethodDelete, "/v1/users/"+created.ID, "", auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/users/"+created.ID, "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), `"type":"not_found"`)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	f := newFixture()
	f.createUser(t, "ada@example.com", "1990-12-10")

	rr := f.do(t, http.MethodPost, "/v1/users", `{"first_name":"A","last_name":"B","email":"ada@example.com"}`, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestScopesAreEnforced(t *testing.T) {
	f := newFixture()

	rr := f.do(t, http.MethodGet, "/v1/users", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/users", `{}`, auth.ScopeFitnessRead)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, http.MethodPost, "/v1/statistics/generate", "", auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Zero(t, f.trigger.statisticsCalls)

	rr = f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestListUsersOlderThan(t *testing.T) {
	f := newFixture()
	older := f.createUser(t, "old@example.com", "1970-01-01")
	f.createUser(t, "young@example.com", "2001-05-05")
	rr := f.do(t, http.MethodPost, "/v1/users", `{"first_name":"No","last_name":"Date","email":"nodate@example.com"}`, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/v1/users/older-than/1990-01-01", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)

	var views []UserView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	require.Equal(t, older.ID, views[0].ID)

	rr = f.do(t, http.MethodGet, "/v1/users/older-than/yesterday", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTrainingEndpoints(t *testing.T) {
	f := newFixture()
	user := f.createUser(t, "ada@example.com", "1990-12-10")

	body := `{"user_id":"` + user.ID + `","start_time":"2024-02-10T07:00:00Z","end_time":"2024-02-10T08:00:00Z","activity_type":"running","distance":10,"average_speed":10}`
	rr := f.do(t, http.MethodPost, "/v1/trainings", body, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created TrainingView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.Equal(t, "RUNNING", created.ActivityType)

	rr = f.do(t, http.MethodPut, "/v1/trainings/"+created.ID, `{"distance":12.5}`, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusOK, rr.Code)
	var updated TrainingView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	require.Equal(t, 12.5, updated.Distance)
	require.Equal(t, 10.0, updated.AverageSpeed)

	rr = f.do(t, http.MethodGet, "/v1/trainings?activity_type=CYCLING", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `[]`, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/v1/trainings?user_id="+user.ID+"&finished_after=2024-02-01T00:00:00Z", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []TrainingView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	rr = f.do(t, http.MethodGet, "/v1/trainings?activity_type=rowing", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateTrainingForUnknownUser(t *testing.T) {
	f := newFixture()

	body := `{"user_id":"missing","start_time":"2024-02-10T07:00:00Z","end_time":"2024-02-10T08:00:00Z","activity_type":"TENNIS"}`
	rr := f.do(t, http.MethodPost, "/v1/trainings", body, auth.ScopeFitnessWrite)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatisticsReads(t *testing.T) {
	f := newFixture()

	rr := f.do(t, http.MethodGet, "/v1/statistics/user/u-1", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusNotFound, rr.Code)

	stored, err := f.stats.Upsert(context.Background(), domain.Statistics{ID: "s-1", UserID: "u-1", TotalTrainings: 3, TotalDistance: 10, AverageSpeed: 10})
	require.NoError(t, err)

	rr = f.do(t, http.MethodGet, "/v1/statistics/user/u-1", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"id":"s-1","user_id":"u-1","total_trainings":3,"total_distance":10,"average_speed":10}`, rr.Body.String())

	rr = f.do(t, http.MethodGet, "/v1/statistics/"+stored.ID, "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodGet, "/v1/statistics", "", auth.ScopeFitnessRead)
	require.Equal(t, http.StatusOK, rr.Code)
	var items []StatisticsView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
	require.Len(t, items, 1)
}

func TestGenerateReportsReturnsOutcomes(t *testing.T) {
	f := newFixture()
	window := domain.PreviousMonth(time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC))
	f.trigger.result = domain.RunResult{
		Pipeline: "reports",
		Window:   window,
		Outcomes: []domain.UserOutcome{
			{UserID: "a", Err: domain.ErrDelivery},
			{UserID: "b"},
		},
	}

	rr := f.do(t, http.MethodPost, "/v1/reports/generate", "", auth.ScopeReportsRun)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, f.trigger.reportsCalls)

	var view RunView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Equal(t, "reports", view.Pipeline)
	require.Equal(t, 1, view.Succeeded)
	require.Equal(t, []FailureView{{UserID: "a", Error: domain.ErrDelivery.Error()}}, view.Failed)
	require.True(t, view.WindowStart.Equal(window.Start))

	rr = f.do(t, http.MethodGet, "/v1/reports/generate", "", auth.ScopeReportsRun)
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestGenerateStatisticsSurfacesListingFailure(t *testing.T) {
	f := newFixture()
	f.trigger.err = errors.Join(domain.ErrDataAccess, errors.New("connection refused"))

	rr := f.do(t, http.MethodPost, "/v1/statistics/generate", "", auth.ScopeReportsRun)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, 1, f.trigger.statisticsCalls)
}

type stubTrigger struct {
	result          domain.RunResult
	err             error
	statisticsCalls int
	reportsCalls    int
}

func (s *stubTrigger) RunStatistics(context.Context) (domain.RunResult, error) {
	s.statisticsCalls++
	return s.result, s.err
}

func (s *stubTrigger) RunReports(context.Context) (domain.RunResult, error) {
	s.reportsCalls++
	return s.result, s.err
}
