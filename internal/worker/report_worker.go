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

const (
	ReportBatchSize    = 50
	ReportBatchTimeout = 2 * time.Second
	ReportPollTimeout  = 1 * time.Second
)

// reportStore is the slice of ReportRepository the worker writes
// through. Tests substitute a failing fake.
type reportStore interface {
	Upsert(ctx context.Context, row *repository.ReportRow) error
	BulkUpsert(ctx context.Context, rows []*repository.ReportRow) error
}

// ReportWorker consumes persist_reports_queue in batches: it bulk
// UPSERTs submission reports, marks the sessions completed, and clears
// the now-stale live keys from Redis.
type ReportWorker struct {
	reportRepo  reportStore
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewReportWorker creates a new ReportWorker.
func NewReportWorker(
	reportRepo *repository.ReportRepository,
	sessionRepo *repository.SessionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ReportWorker {
	return &ReportWorker{
		reportRepo:  reportRepo,
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "report_worker").Logger(),
	}
}

type reportPayload struct {
	StudentID   int             `json:"student_id"`
	ExamID      string          `json:"exam_id"`
	CorrectRate float64         `json:"correct_rate"`
	Report      json.RawMessage `json:"report"`
}

// Start begins the worker loop with batching. Call in a goroutine.
func (w *ReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ReportWorker started")

	batch := make([]*reportPayload, 0, ReportBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ReportBatchSize || time.Since(lastFlush) >= ReportBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ReportPollTimeout, config.WorkerKey.PersistReportsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p reportPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *ReportWorker) flushSafe(ctx context.Context, batch []*reportPayload) {
	if len(batch) == 0 {
		return
	}

	rows := make([]*repository.ReportRow, 0, len(batch))
	valid := make([]*reportPayload, 0, len(batch))
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", p.ExamID).Msg("Invalid exam ID, dropping report")
			continue
		}
		rows = append(rows, &repository.ReportRow{
			ExamID:      examID,
			StudentID:   p.StudentID,
			CorrectRate: p.CorrectRate,
			Payload:     p.Report,
		})
		valid = append(valid, p)
	}

	if err := w.reportRepo.BulkUpsert(ctx, rows); err != nil {
		w.log.Warn().Err(err).Msg("Bulk report upsert failed, using fallback")

		persisted, requeue := w.upsertEach(ctx, rows, valid)
		for _, p := range requeue {
			raw, _ := json.Marshal(p)
			w.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, raw)
		}
		for _, row := range persisted {
			w.completeSession(ctx, row)
		}
		w.clearLiveKeys(ctx, persisted)
		return
	}

	for _, row := range rows {
		w.completeSession(ctx, row)
	}
	w.clearLiveKeys(ctx, rows)
}

// upsertEach retries rows one at a time after a failed bulk write. Only
// rows that are now durable may have their sessions completed and their
// live keys cleared; the rest go back on the queue with their snapshots
// intact.
func (w *ReportWorker) upsertEach(ctx context.Context, rows []*repository.ReportRow, payloads []*reportPayload) (persisted []*repository.ReportRow, requeue []*reportPayload) {
	for i, row := range rows {
		if err := w.reportRepo.Upsert(ctx, row); err != nil {
			w.log.Error().Err(err).Msg("Single upsert failed, requeueing")
			requeue = append(requeue, payloads[i])
			continue
		}
		persisted = append(persisted, row)
	}
	return persisted, requeue
}

func (w *ReportWorker) completeSession(ctx context.Context, row *repository.ReportRow) {
	if err := w.sessionRepo.Complete(ctx, row.ExamID, row.StudentID, row.CorrectRate); err != nil {
		w.log.Error().Err(err).
			Str("exam_id", row.ExamID.String()).
			Int("student_id", row.StudentID).
			Msg("Complete session failed")
	}
}

// clearLiveKeys deletes the per-student hot keys once the report is
// durable; the submitted session no longer needs a live snapshot.
func (w *ReportWorker) clearLiveKeys(ctx context.Context, rows []*repository.ReportRow) {
	pipe := w.rdb.Pipeline()
	for _, row := range rows {
		pipe.Del(ctx, config.CacheKey.SessionSnapshotKey(row.ExamID.String(), row.StudentID))
		pipe.Del(ctx, config.CacheKey.StudentActiveExamKey(row.StudentID))
	}
	_, _ = pipe.Exec(ctx)
}
