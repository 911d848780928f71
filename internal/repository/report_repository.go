package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRow is one persisted submission report.
type ReportRow struct {
	ExamID      uuid.UUID `json:"exam_id"`
	StudentID   int       `json:"student_id"`
	CorrectRate float64   `json:"correct_rate"`
	Payload     []byte    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportRepository handles submission report persistence.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Upsert stores one report, replacing any earlier submission for the
// same exam-student pair.
func (r *ReportRepository) Upsert(ctx context.Context, row *ReportRow) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_reports (exam_id, student_id, correct_rate, payload)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, student_id) DO UPDATE
		 SET correct_rate = EXCLUDED.correct_rate, payload = EXCLUDED.payload, created_at = NOW()`,
		row.ExamID, row.StudentID, row.CorrectRate, row.Payload,
	)
	return err
}

// BulkUpsert stores a batch of reports in one round trip using UNNEST.
func (r *ReportRepository) BulkUpsert(ctx context.Context, rows []*ReportRow) error {
	n := len(rows)
	if n == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	rates := make([]float64, 0, n)
	payloads := make([]string, 0, n) // jsonb[] binds as text, not bytea
	for _, row := range rows {
		examIDs = append(examIDs, row.ExamID)
		students = append(students, row.StudentID)
		rates = append(rates, row.CorrectRate)
		payloads = append(payloads, string(row.Payload))
	}

	query := `
		INSERT INTO exam_reports (exam_id, student_id, correct_rate, payload)
		SELECT u.exam_id, u.student_id, u.correct_rate, u.payload
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::float8[],
			$4::jsonb[]
		) AS u (exam_id, student_id, correct_rate, payload)
		ON CONFLICT (exam_id, student_id) DO UPDATE
		SET correct_rate = EXCLUDED.correct_rate, payload = EXCLUDED.payload, created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, examIDs, students, rates, payloads)
	return err
}

// GetByExamAndStudent retrieves one report, or nil when the student has
// not submitted.
func (r *ReportRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*ReportRow, error) {
	row := &ReportRow{}
	err := r.pool.QueryRow(ctx,
		`SELECT exam_id, student_id, correct_rate, payload, created_at
		 FROM exam_reports
		 WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&row.ExamID, &row.StudentID, &row.CorrectRate, &row.Payload, &row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}
