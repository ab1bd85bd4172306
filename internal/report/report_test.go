package report

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/persistence/memory"
)

var february = domain.Window{
	Start: time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
}

func TestComposeGreetsByFirstName(t *testing.T) {
	user := domain.User{ID: "u-1", FirstName: "Ada", Email: "ada@example.com"}

	email := NewComposer("").Compose(user, 5, february)

	require.Equal(t, "ada@example.com", email.To)
	require.Equal(t, DefaultSubject, email.Subject)
	require.Contains(t, email.Body, "Hello Ada,")
	require.Contains(t, email.Body, "You completed 5 trainings in February 2024.")
	require.Contains(t, email.Body, "Keep up the great work!")
}

func TestComposeSubjectOverrideAndSingular(t *testing.T) {
	email := NewComposer("Your month").Compose(domain.User{FirstName: "Bo"}, 1, february)

	require.Equal(t, "Your month", email.Subject)
	require.Contains(t, email.Body, "You completed 1 training in")
}

func TestPipelineContinuesAfterDeliveryFailure(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	require.NoError(t, users.Create(ctx, domain.User{ID: "a", FirstName: "Ann", Email: "ann@example.com"}))
	require.NoError(t, users.Create(ctx, domain.User{ID: "b", FirstName: "Ben", Email: "ben@example.com"}))

	trainings := memory.NewTrainingRepository()
	start := february.Start.Add(36 * time.Hour)
	require.NoError(t, trainings.Create(ctx, domain.Training{
		ID: "t-1", UserID: "b", StartTime: start, EndTime: start.Add(time.Hour), ActivityType: domain.ActivityTennis,
	}))

	sender := &stubSender{failFor: map[string]error{"ann@example.com": errors.New("550 mailbox unavailable")}}
	logger := log.New(testWriter{t}, "", 0)
	dispatcher := NewDispatcher(trainings, NewComposer(""), sender, logger)
	pipeline := NewPipeline(users, dispatcher, WithConcurrency(2), WithLogger(logger))

	failedBefore := testutil.ToFloat64(reportsDispatched.WithLabelValues("delivery_failed"))

	result, err := pipeline.Run(ctx, february)
	require.NoError(t, err)
	require.Equal(t, PipelineName, result.Pipeline)
	require.Equal(t, 1, result.Succeeded())

	failed := result.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, "a", failed[0].UserID)
	require.ErrorIs(t, failed[0].Err, domain.ErrDelivery)
	require.Equal(t, failedBefore+1, testutil.ToFloat64(reportsDispatched.WithLabelValues("delivery_failed")))

	require.Equal(t, 2, sender.attempts())
	delivered := sender.delivered()
	require.Len(t, delivered, 1)
	require.Equal(t, "ben@example.com", delivered[0].To)
	require.Contains(t, delivered[0].Body, "You completed 1 training in February 2024.")
}

func TestDispatchReportsDataAccessFailure(t *testing.T) {
	sender := &stubSender{}
	dispatcher := NewDispatcher(brokenReader{}, NewComposer(""), sender, log.New(testWriter{t}, "", 0))

	outcome := dispatcher.Dispatch(context.Background(), domain.User{ID: "a", Email: "ann@example.com"}, february)

	require.ErrorIs(t, outcome.Err, domain.ErrDataAccess)
	require.Zero(t, sender.attempts())
}

type stubSender struct {
	mu      sync.Mutex
	failFor map[string]error
	calls   int
	sent    []domain.ReportEmail
}

func (s *stubSender) Send(_ context.Context, email domain.ReportEmail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.failFor[email.To]; err != nil {
		return err
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *stubSender) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSender) delivered() []domain.ReportEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ReportEmail(nil), s.sent...)
}

type brokenReader struct{}

func (brokenReader) ListByUserInRange(context.Context, string, time.Time, time.Time) ([]domain.Training, error) {
	return nil, errors.New("pool closed")
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
