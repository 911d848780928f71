package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edukit/paperflow-backend/internal/model"
)

// SessionRepository handles exam session rows and their durable
// snapshots.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetByExamAndStudent retrieves a session for a specific exam-student
// combination.
func (r *SessionRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, started_at, finished_at, status, final_score
		 FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.StartedAt, &s.FinishedAt, &s.Status, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new exam session (student joins the exam).
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO NOTHING
		 RETURNING id, started_at`,
		s.ExamID, s.StudentID, model.SessionStatusInProgress,
	).Scan(&s.ID, &s.StartedAt)
}

// Complete marks a session as completed with a final score.
func (r *SessionRepository) Complete(ctx context.Context, examID uuid.UUID, studentID int, score float64) error {
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, final_score = $2, finished_at = $3
		 WHERE exam_id = $4 AND student_id = $5`,
		model.SessionStatusCompleted, score, now, examID, studentID)
	return err
}

// SaveSnapshot UPSERTs the latest serialized session snapshot. Repeated
// writes for the same exam-student pair replace the previous snapshot.
func (r *SessionRepository) SaveSnapshot(ctx context.Context, examID uuid.UUID, studentID int, snapshot []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_snapshots (exam_id, student_id, snapshot)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		examID, studentID, snapshot,
	)
	return err
}

// LoadSnapshot returns the serialized snapshot, or nil when none was
// persisted yet.
func (r *SessionRepository) LoadSnapshot(ctx context.Context, examID uuid.UUID, studentID int) ([]byte, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT snapshot FROM session_snapshots
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}
