package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/repository"
)

// SnapshotWorker consumes persist_snapshots_queue and UPSERTs session
// snapshots to PostgreSQL. Redis stays the hot path; this worker is the
// durability tail.
type SnapshotWorker struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSnapshotWorker creates a new SnapshotWorker.
func NewSnapshotWorker(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "snapshot_worker").Logger(),
	}
}

type snapshotPayload struct {
	StudentID int             `json:"student_id"`
	ExamID    string          `json:"exam_id"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SnapshotWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *SnapshotWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistSnapshotsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload snapshotPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistSnapshot(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Int("student_id", payload.StudentID).
			Str("exam_id", payload.ExamID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *SnapshotWorker) persistSnapshot(ctx context.Context, p *snapshotPayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	return w.sessionRepo.SaveSnapshot(ctx, examID, p.StudentID, p.Snapshot)
}

// drain processes all remaining items in the queue before shutdown.
func (w *SnapshotWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistSnapshotsQueue).Result()
		if err != nil {
			break
		}

		var payload snapshotPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistSnapshot(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
