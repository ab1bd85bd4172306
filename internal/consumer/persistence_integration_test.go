//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitnesstracker/internal/events"
	"example.com/fitnesstracker/internal/testsupport"
)

func TestPersistenceHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := testsupport.StartPostgres(ctx, t)

	handler := NewPersistenceHandler(pool)

	payload := json.RawMessage(`{"statistics_id":"s-1","user_id":"u-1","total_trainings":3}`)
	msg := Message{
		EventType:     events.TypeStatisticsUpdated,
		AggregateID:   "s-1",
		SchemaID:      42,
		SchemaSubject: "statistics_events-value",
		Topic:         "statistics_events",
		Partition:     0,
		Offset:        5,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg), "redelivery is a no-op")

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracker_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var stored []byte
	var aggregateID string
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload, aggregate_id FROM tracker_event_log LIMIT 1`).Scan(&stored, &aggregateID))
	require.JSONEq(t, string(payload), string(stored))
	require.Equal(t, "s-1", aggregateID)
}
