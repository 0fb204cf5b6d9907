// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openroyale/royaled/internal/models"
)

func newTestService(batchSize int, insert func(context.Context, []models.MatchResult) error) *Service {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return &Service{
		log:        log,
		queue:      "royale_results",
		batchSize:  batchSize,
		flushDelay: time.Second,
		insert:     insert,
		batch:      make([]models.MatchResult, 0, batchSize),
	}
}

func resultPayload(t *testing.T, world string) []byte {
	t.Helper()
	data, err := json.Marshal(models.MatchResult{
		MatchID:     uuid.New(),
		World:       world,
		Mode:        "royale",
		WinnerName:  "MARIO",
		PlayerCount: 12,
		FinishedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	return data
}

func TestBatchFlushesWhenFull(t *testing.T) {
	var flushed [][]models.MatchResult
	s := newTestService(3, func(_ context.Context, batch []models.MatchResult) error {
		flushed = append(flushed, batch)
		return nil
	})

	ctx := context.Background()
	s.handleMessage(ctx, resultPayload(t, "world-1"))
	s.handleMessage(ctx, resultPayload(t, "world-2"))
	require.Empty(t, flushed, "partial batch must not flush")

	s.handleMessage(ctx, resultPayload(t, "world-3"))
	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 3)
	assert.Equal(t, "world-1", flushed[0][0].World)
	assert.Equal(t, "world-3", flushed[0][2].World)
}

func TestTimedFlushDrainsPartialBatch(t *testing.T) {
	var flushed [][]models.MatchResult
	s := newTestService(10, func(_ context.Context, batch []models.MatchResult) error {
		flushed = append(flushed, batch)
		return nil
	})

	ctx := context.Background()
	s.handleMessage(ctx, resultPayload(t, "world-1"))
	s.flush(ctx)

	require.Len(t, flushed, 1)
	assert.Len(t, flushed[0], 1)

	// An empty batch is a no-op, not an empty transaction.
	s.flush(ctx)
	assert.Len(t, flushed, 1)
}

func TestFailedFlushRequeuesInOrder(t *testing.T) {
	fail := true
	var flushed []models.MatchResult
	s := newTestService(2, func(_ context.Context, batch []models.MatchResult) error {
		if fail {
			return errors.New("db down")
		}
		flushed = append(flushed, batch...)
		return nil
	})

	ctx := context.Background()
	s.handleMessage(ctx, resultPayload(t, "world-1"))
	s.handleMessage(ctx, resultPayload(t, "world-2"))
	require.Empty(t, flushed)

	// Records survive the failed attempt and flush next time in order.
	fail = false
	s.flush(ctx)
	require.Len(t, flushed, 2)
	assert.Equal(t, "world-1", flushed[0].World)
	assert.Equal(t, "world-2", flushed[1].World)
}

func TestMalformedPayloadIsDropped(t *testing.T) {
	var calls int
	s := newTestService(1, func(_ context.Context, batch []models.MatchResult) error {
		calls++
		return nil
	})

	s.handleMessage(context.Background(), []byte("{not json"))
	assert.Zero(t, calls)

	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	assert.Empty(t, s.batch)
}
