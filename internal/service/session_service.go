package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/layout"
	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/report"
	"github.com/edukit/paperflow-backend/internal/repository"
	"github.com/edukit/paperflow-backend/internal/session"
)

// Domain errors
var (
	ErrSessionCompleted = errors.New("exam session is already completed")
	ErrNoActiveSession  = errors.New("no active session for this exam")
	ErrReportNotReady   = errors.New("report has not been persisted yet")
)

// snapshotPayload is the queue message the snapshot worker consumes.
type snapshotPayload struct {
	StudentID int             `json:"student_id"`
	ExamID    string          `json:"exam_id"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// reportPayload is the queue message the report worker consumes.
type reportPayload struct {
	StudentID   int             `json:"student_id"`
	ExamID      string          `json:"exam_id"`
	CorrectRate float64         `json:"correct_rate"`
	Report      json.RawMessage `json:"report"`
}

// snapshotCache is the slice of the Redis API the store reads and
// writes. Tests substitute a fake.
type snapshotCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// snapshotArchive is the durable snapshot table behind the live cache.
type snapshotArchive interface {
	LoadSnapshot(ctx context.Context, examID uuid.UUID, studentID int) ([]byte, error)
}

// redisStore adapts Redis to the session.Store interface for one
// exam-student pair. Saves write through to the live key and enqueue a
// copy for the snapshot worker to persist to PostgreSQL; loads fall
// back to the PostgreSQL copy when Redis has lost the live key.
type redisStore struct {
	rdb       snapshotCache
	archive   snapshotArchive
	examID    uuid.UUID
	studentID int
}

func (s *redisStore) Save(ctx context.Context, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := config.CacheKey.SessionSnapshotKey(s.examID.String(), s.studentID)
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}

	queued, err := json.Marshal(snapshotPayload{
		StudentID: s.studentID,
		ExamID:    s.examID.String(),
		Snapshot:  raw,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot payload: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistSnapshotsQueue, queued).Err()
}

func (s *redisStore) Load(ctx context.Context) (*session.Snapshot, error) {
	key := config.CacheKey.SessionSnapshotKey(s.examID.String(), s.studentID)

	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		if raw, err = s.loadDurable(ctx, key); err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
	} else if err != nil {
		return nil, fmt.Errorf("get cached snapshot: %w", err)
	}

	snap := &session.Snapshot{}
	if err := json.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("corrupt cached snapshot: %w", err)
	}
	return snap, nil
}

// loadDurable recovers the snapshot the worker persisted to PostgreSQL
// after Redis lost the live key (eviction, flush, restart) and re-primes
// the cache with it.
func (s *redisStore) loadDurable(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.archive.LoadSnapshot(ctx, s.examID, s.studentID)
	if err != nil {
		return nil, fmt.Errorf("load durable snapshot: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	if err := s.rdb.Set(ctx, key, raw, 0).Err(); err != nil {
		return nil, fmt.Errorf("reprime snapshot cache: %w", err)
	}
	return raw, nil
}

// reportSource is the slice of ReportRepository the service reads
// persisted reports through. Tests substitute a fake.
type reportSource interface {
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*repository.ReportRow, error)
}

// SessionService owns the registry of live session controllers, one per
// exam-student pair, and the join/submit lifecycle around them.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	reportRepo  reportSource
	examSvc     *ExamService
	rdb         *redis.Client
	log         zerolog.Logger
	cfg         config.SessionConfig

	mu          sync.Mutex
	controllers map[string]*session.Controller
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionRepo *repository.SessionRepository,
	reportRepo *repository.ReportRepository,
	examSvc *ExamService,
	rdb *redis.Client,
	cfg config.SessionConfig,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		reportRepo:  reportRepo,
		examSvc:     examSvc,
		rdb:         rdb,
		cfg:         cfg,
		log:         log.With().Str("component", "session_service").Logger(),
		controllers: make(map[string]*session.Controller),
	}
}

// Join creates (or resumes) the student's session for a published exam
// and returns the assembled paper. Idempotent: re-joining after a
// reload resumes the running clock instead of resetting it.
func (s *SessionService) Join(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamPaper, session.Snapshot, error) {
	paper, err := s.examSvc.GetPaper(ctx, examID)
	if err != nil {
		return nil, session.Snapshot{}, err
	}

	existing, err := s.sessionRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, session.Snapshot{}, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil && existing.Status == model.SessionStatusCompleted {
		return nil, session.Snapshot{}, ErrSessionCompleted
	}

	if existing == nil {
		row := &model.ExamSession{ExamID: examID, StudentID: studentID}
		if err := s.sessionRepo.Create(ctx, row); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			// ErrNoRows here means a concurrent join won the insert,
			// which is fine: the controller registry is the authority.
			return nil, session.Snapshot{}, fmt.Errorf("create session: %w", err)
		}
	}

	_ = s.rdb.Set(ctx, config.CacheKey.StudentActiveExamKey(studentID), examID.String(), 0)

	ctrl := s.controller(ctx, examID, studentID, paper)
	return paper, ctrl.Snapshot(), nil
}

// TransitionTo moves the student's active item pointer.
func (s *SessionService) TransitionTo(ctx context.Context, examID uuid.UUID, studentID int, itemID string) error {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return err
	}
	ctrl.TransitionTo(ctx, itemID)
	return nil
}

// Answer records an answer value. Selectable items send values;
// free-text items send text.
func (s *SessionService) Answer(ctx context.Context, examID uuid.UUID, studentID int, req *model.AnswerRequest) error {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return err
	}
	if req.Text != nil {
		ctrl.SetText(ctx, req.ItemID, *req.Text)
		return nil
	}
	ctrl.SelectAnswer(ctx, req.ItemID, req.Values)
	return nil
}

// Commit marks an item done with a self-assessment status.
func (s *SessionService) Commit(ctx context.Context, examID uuid.UUID, studentID int, itemID string, status session.Status) error {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return err
	}
	ctrl.Commit(ctx, itemID, status)
	return nil
}

// Skip tags an item as deliberately deferred.
func (s *SessionService) Skip(ctx context.Context, examID uuid.UUID, studentID int, itemID string) error {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return err
	}
	ctrl.Skip(ctx, itemID)
	return nil
}

// State returns the student's current session snapshot.
func (s *SessionService) State(examID uuid.UUID, studentID int) (session.Snapshot, error) {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Submit ends the session, scores it against the cached answer key, and
// enqueues the report for persistence. Returns the scored report
// immediately; PostgreSQL catches up through the report worker.
func (s *SessionService) Submit(ctx context.Context, examID uuid.UUID, studentID int) (*report.Report, error) {
	ctrl, err := s.liveController(examID, studentID)
	if err != nil {
		return nil, err
	}

	ctrl.End(ctx)
	snap := ctrl.Snapshot()

	defs, err := s.examSvc.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	rep := report.Build(defs, snap)

	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	queued, err := json.Marshal(reportPayload{
		StudentID:   studentID,
		ExamID:      examID.String(),
		CorrectRate: rep.CorrectRate,
		Report:      raw,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal report payload: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistReportsQueue, queued).Err(); err != nil {
		return nil, fmt.Errorf("enqueue report: %w", err)
	}

	s.release(examID, studentID)
	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Float64("correct_rate", rep.CorrectRate).
		Msg("Session submitted")

	return &rep, nil
}

// Report returns the persisted submission report for the exam-student
// pair. Submission scores in RAM and queues the report for the worker,
// so right after submit the row may not exist yet; that window reports
// ErrReportNotReady rather than an empty payload.
func (s *SessionService) Report(ctx context.Context, examID uuid.UUID, studentID int) (json.RawMessage, error) {
	row, err := s.reportRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	if row == nil {
		return nil, ErrReportNotReady
	}
	return row.Payload, nil
}

// Shutdown closes every live controller. Sessions survive in the store
// and resume on the next join.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, ctrl := range s.controllers {
		ctrl.Close()
		delete(s.controllers, key)
	}
}

func registryKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("%s:%d", examID, studentID)
}

// controller returns the live controller for the pair, creating and
// starting one from the persisted snapshot when absent.
func (s *SessionService) controller(ctx context.Context, examID uuid.UUID, studentID int, paper *model.ExamPaper) *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := registryKey(examID, studentID)
	if ctrl, ok := s.controllers[key]; ok {
		return ctrl
	}

	// Auto-advance walks answerable items only; solution chunks are
	// display-only.
	var order []string
	for _, item := range paper.Items {
		if item.Kind == string(layout.KindProblem) {
			order = append(order, item.ID)
		}
	}

	ctrl := session.NewController(session.Options{
		ItemOrder:    order,
		Store:        &redisStore{rdb: s.rdb, archive: s.sessionRepo, examID: examID, studentID: studentID},
		Log:          s.log,
		TickInterval: s.cfg.TickInterval,
	})
	ctrl.StartOrResume(ctx)
	s.controllers[key] = ctrl
	return ctrl
}

func (s *SessionService) liveController(examID uuid.UUID, studentID int) (*session.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.controllers[registryKey(examID, studentID)]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return ctrl, nil
}

func (s *SessionService) release(examID uuid.UUID, studentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := registryKey(examID, studentID)
	if ctrl, ok := s.controllers[key]; ok {
		ctrl.Close()
		delete(s.controllers, key)
	}
}
