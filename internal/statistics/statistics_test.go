package statistics

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/persistence/memory"
)

var february = domain.Window{
	Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
}

func TestReduce(t *testing.T) {
	trainings := []domain.Training{
		{Distance: 3, AverageSpeed: 10},
		{Distance: 5, AverageSpeed: 8},
		{Distance: 2, AverageSpeed: 12},
	}

	agg := Reduce("user-1", trainings)

	require.Equal(t, "user-1", agg.UserID)
	require.Equal(t, 3, agg.TotalTrainings)
	require.InDelta(t, 10.0, agg.TotalDistance, 1e-9)
	require.InDelta(t, 10.0, agg.AverageSpeed, 1e-9)
}

func TestReduceEmptyWindow(t *testing.T) {
	agg := Reduce("user-1", nil)

	require.Equal(t, domain.MonthlyAggregate{UserID: "user-1"}, agg)
}

func TestAggregateUsesHalfOpenWindow(t *testing.T) {
	trainings := memory.NewTrainingRepository()
	seedTraining(t, trainings, "user-1", time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC), 4, 9)
	seedTraining(t, trainings, "user-1", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 50, 50)
	seedTraining(t, trainings, "user-1", time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC), 50, 50)

	agg, err := NewAggregator(trainings).Aggregate(context.Background(), "user-1", february)
	require.NoError(t, err)
	require.Equal(t, 1, agg.TotalTrainings)
	require.InDelta(t, 4.0, agg.TotalDistance, 1e-9)
	require.InDelta(t, 9.0, agg.AverageSpeed, 1e-9)
}

func TestPipelineIsIdempotent(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addUser("jane")
	fx.addUser("john")
	seedTraining(t, fx.trainings, "jane", february.Start.Add(24*time.Hour), 3, 10)

	first, err := fx.pipeline.Run(ctx, february)
	require.NoError(t, err)
	require.NoError(t, first.Err())
	before, err := fx.stats.List(ctx)
	require.NoError(t, err)

	second, err := fx.pipeline.Run(ctx, february)
	require.NoError(t, err)
	require.NoError(t, second.Err())
	after, err := fx.stats.List(ctx)
	require.NoError(t, err)

	require.Len(t, after, 2)
	require.Equal(t, before, after)

	john, err := fx.stats.FindByUser(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, 0, john.TotalTrainings)
	require.Zero(t, john.AverageSpeed)
}

func TestPipelineRecomputesOnlyChangedUser(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addUser("jane")
	fx.addUser("john")
	seedTraining(t, fx.trainings, "jane", february.Start.Add(time.Hour), 3, 10)
	seedTraining(t, fx.trainings, "john", february.Start.Add(2*time.Hour), 7, 14)

	_, err := fx.pipeline.Run(ctx, february)
	require.NoError(t, err)
	johnBefore, err := fx.stats.FindByUser(ctx, "john")
	require.NoError(t, err)
	janeBefore, err := fx.stats.FindByUser(ctx, "jane")
	require.NoError(t, err)

	seedTraining(t, fx.trainings, "jane", february.Start.Add(48*time.Hour), 5, 8)
	_, err = fx.pipeline.Run(ctx, february)
	require.NoError(t, err)

	johnAfter, err := fx.stats.FindByUser(ctx, "john")
	require.NoError(t, err)
	require.Equal(t, *johnBefore, *johnAfter)

	janeAfter, err := fx.stats.FindByUser(ctx, "jane")
	require.NoError(t, err)
	require.Equal(t, janeBefore.ID, janeAfter.ID)
	require.Equal(t, 2, janeAfter.TotalTrainings)
	require.InDelta(t, 8.0, janeAfter.TotalDistance, 1e-9)
	require.InDelta(t, 9.0, janeAfter.AverageSpeed, 1e-9)
}

func TestPipelineContinuesAfterDataAccessFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addUser("broken")
	fx.addUser("healthy")
	seedTraining(t, fx.trainings, "healthy", february.Start.Add(time.Hour), 2, 6)

	reader := &failingReader{TrainingReader: fx.trainings, failFor: "broken"}
	pipeline := NewPipeline(fx.users, NewAggregator(reader), NewCoordinator(fx.stats),
		WithConcurrency(2), WithLogger(log.New(testWriter{t}, "", 0)))

	failedBefore := testutil.ToFloat64(usersProcessed.WithLabelValues("aggregate_failed"))

	result, err := pipeline.Run(ctx, february)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded())
	require.Len(t, result.Failed(), 1)
	require.Equal(t, "broken", result.Failed()[0].UserID)
	require.ErrorIs(t, result.Err(), domain.ErrDataAccess)
	require.Equal(t, failedBefore+1, testutil.ToFloat64(usersProcessed.WithLabelValues("aggregate_failed")))

	healthy, err := fx.stats.FindByUser(ctx, "healthy")
	require.NoError(t, err)
	require.NotNil(t, healthy)
	require.Equal(t, 1, healthy.TotalTrainings)

	broken, err := fx.stats.FindByUser(ctx, "broken")
	require.NoError(t, err)
	require.Nil(t, broken)
}

func TestPipelineContinuesAfterUpsertFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.addUser("locked")
	fx.addUser("healthy")
	seedTraining(t, fx.trainings, "locked", february.Start.Add(time.Hour), 4, 8)
	seedTraining(t, fx.trainings, "healthy", february.Start.Add(2*time.Hour), 2, 6)

	store := &selectiveStore{StatisticsRepository: fx.stats, failFor: "locked"}
	pipeline := NewPipeline(fx.users, NewAggregator(fx.trainings), NewCoordinator(store),
		WithConcurrency(2), WithLogger(log.New(testWriter{t}, "", 0)))

	failedBefore := testutil.ToFloat64(usersProcessed.WithLabelValues("upsert_failed"))

	result, err := pipeline.Run(ctx, february)
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded())
	require.Len(t, result.Failed(), 1)
	require.Equal(t, "locked", result.Failed()[0].UserID)
	require.ErrorIs(t, result.Err(), domain.ErrDataAccess)
	require.Equal(t, failedBefore+1, testutil.ToFloat64(usersProcessed.WithLabelValues("upsert_failed")))

	healthy, err := fx.stats.FindByUser(ctx, "healthy")
	require.NoError(t, err)
	require.NotNil(t, healthy)
	require.Equal(t, 1, healthy.TotalTrainings)
	require.InDelta(t, 2.0, healthy.TotalDistance, 1e-9)

	locked, err := fx.stats.FindByUser(ctx, "locked")
	require.NoError(t, err)
	require.Nil(t, locked)
}

func TestPipelineFailsWhenUsersUnavailable(t *testing.T) {
	pipeline := NewPipeline(brokenLister{}, NewAggregator(memory.NewTrainingRepository()),
		NewCoordinator(memory.NewStatisticsRepository()), WithLogger(log.New(testWriter{t}, "", 0)))

	result, err := pipeline.Run(context.Background(), february)
	require.ErrorIs(t, err, domain.ErrDataAccess)
	require.Empty(t, result.Outcomes)
}

func TestCoordinatorPreservesIdentity(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStatisticsRepository()
	coordinator := NewCoordinator(store)

	first, err := coordinator.Apply(ctx, domain.MonthlyAggregate{UserID: "jane", TotalTrainings: 1, TotalDistance: 2, AverageSpeed: 3})
	require.NoError(t, err)
	second, err := coordinator.Apply(ctx, domain.MonthlyAggregate{UserID: "jane", TotalTrainings: 4})
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 4, second.TotalTrainings)

	svc := NewService(store)
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	byID, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, "jane", byID.UserID)

	_, err = svc.ForUser(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCoordinatorWrapsStoreFailure(t *testing.T) {
	_, err := NewCoordinator(failingStore{}).Apply(context.Background(), domain.MonthlyAggregate{UserID: "jane"})
	require.ErrorIs(t, err, domain.ErrDataAccess)
}

type fixture struct {
	t         *testing.T
	users     *memory.UserRepository
	trainings *memory.TrainingRepository
	stats     *memory.StatisticsRepository
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		t:         t,
		users:     memory.NewUserRepository(),
		trainings: memory.NewTrainingRepository(),
		stats:     memory.NewStatisticsRepository(),
	}
	fx.pipeline = NewPipeline(fx.users, NewAggregator(fx.trainings), NewCoordinator(fx.stats),
		WithConcurrency(4), WithLogger(log.New(testWriter{t}, "", 0)))
	return fx
}

func (fx *fixture) addUser(id string) {
	fx.t.Helper()
	require.NoError(fx.t, fx.users.Create(context.Background(), domain.User{
		ID:        id,
		FirstName: id,
		LastName:  "Tester",
		Email:     id + "@example.com",
	}))
}

func seedTraining(t *testing.T, repo *memory.TrainingRepository, userID string, start time.Time, distance, speed float64) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), domain.Training{
		ID:           uuid.NewString(),
		UserID:       userID,
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		ActivityType: domain.ActivityRunning,
		Distance:     distance,
		AverageSpeed: speed,
	}))
}

type failingReader struct {
	TrainingReader
	failFor string
}

func (r *failingReader) ListByUserInRange(ctx context.Context, userID string, start, end time.Time) ([]domain.Training, error) {
	if userID == r.failFor {
		return nil, errors.New("connection reset")
	}
	return r.TrainingReader.ListByUserInRange(ctx, userID, start, end)
}

type brokenLister struct{}

func (brokenLister) List(context.Context) ([]domain.User, error) {
	return nil, errors.New("directory offline")
}

type failingStore struct {
	domain.StatisticsRepository
}

func (failingStore) Upsert(context.Context, domain.Statistics) (domain.Statistics, error) {
	return domain.Statistics{}, errors.New("deadlock detected")
}

type selectiveStore struct {
	domain.StatisticsRepository
	failFor string
}

func (s *selectiveStore) Upsert(ctx context.Context, stats domain.Statistics) (domain.Statistics, error) {
	if stats.UserID == s.failFor {
		return domain.Statistics{}, errors.New("could not serialize access")
	}
	return s.StatisticsRepository.Upsert(ctx, stats)
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
