// internal/historian/historian.go
//
// The historian drains finished-round records from the Redis results queue
// and persists them to Postgres in batches. It runs as its own process so a
// database stall can never back-pressure the match server; the queue just
// grows until the historian catches up.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openroyale/royaled/internal/database"
	"github.com/openroyale/royaled/internal/models"
)

const popTimeout = 3 * time.Second

// Service batches queue records and flushes them in one transaction per
// batch, either when the batch fills or on the flush ticker.
type Service struct {
	log        *logrus.Logger
	rdb        *redis.Client
	queue      string
	batchSize  int
	flushDelay time.Duration

	// insert persists one batch; swapped out by tests.
	insert func(ctx context.Context, batch []models.MatchResult) error

	batchMu sync.Mutex
	batch   []models.MatchResult
}

// New builds a service from environment variables:
//   - HISTORIAN_QUEUE_NAME (default "royale_results")
//   - HISTORIAN_BATCH_SIZE (default 20)
//   - HISTORIAN_FLUSH_MS (default 500)
func New(log *logrus.Logger, rdb *redis.Client) *Service {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	return &Service{
		log:        log,
		rdb:        rdb,
		queue:      getEnv("HISTORIAN_QUEUE_NAME", "royale_results"),
		batchSize:  batchSize,
		flushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		insert:     insertBatch,
		batch:      make([]models.MatchResult, 0, batchSize),
	}
}

// Run pops and persists until the context ends. The in-flight batch is
// flushed before returning so a clean shutdown loses nothing.
func (s *Service) Run(ctx context.Context) error {
	s.log.Infof("historian draining queue %q", s.queue)
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush(context.Background())
			return ctx.Err()
		case <-ticker.C:
			s.flush(ctx)
		default:
			res, err := s.rdb.BLPop(ctx, popTimeout, s.queue).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				s.log.Errorf("blpop: %v", err)
				continue
			}
			if len(res) < 2 {
				continue
			}
			// res[0] is the queue name, res[1] the payload.
			s.handleMessage(ctx, []byte(res[1]))
		}
	}
}

// handleMessage parses one queue payload into the batch, flushing when the
// batch fills. Malformed payloads are logged and dropped; replaying them
// would wedge the queue forever.
func (s *Service) handleMessage(ctx context.Context, payload []byte) {
	var rec models.MatchResult
	if err := json.Unmarshal(payload, &rec); err != nil {
		s.log.Warnf("invalid result record: %v", err)
		return
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

// flush persists the pending batch in a single transaction. On failure the
// batch is put back in front so nothing is lost to a transient DB error.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := s.batch
	s.batch = make([]models.MatchResult, 0, s.batchSize)
	s.batchMu.Unlock()

	if err := s.insert(ctx, pending); err != nil {
		s.log.Errorf("flush %d results: %v", len(pending), err)
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		s.batchMu.Unlock()
		return
	}
	s.log.Infof("flushed %d results", len(pending))
}

func insertBatch(ctx context.Context, batch []models.MatchResult) error {
	return pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, r := range batch {
			if err := database.InsertMatchResultTx(ctx, tx, r); err != nil {
				return fmt.Errorf("insert result %s: %w", r.MatchID, err)
			}
		}
		return nil
	})
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
