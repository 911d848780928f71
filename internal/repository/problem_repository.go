package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edukit/paperflow-backend/internal/model"
)

// ProblemRepository handles problem data access.
type ProblemRepository struct {
	pool *pgxpool.Pool
}

// NewProblemRepository creates a new ProblemRepository.
func NewProblemRepository(pool *pgxpool.Pool) *ProblemRepository {
	return &ProblemRepository{pool: pool}
}

// ListByExam retrieves all problems for a given exam, ordered by order_num.
func (r *ProblemRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Problem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, problem_text, kind, options, correct_answers, correct_text, solution, difficulty, order_num
		 FROM problems WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var problems []model.Problem
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.ExamID, &p.Text, &p.Kind, &p.Options, &p.CorrectAnswers, &p.CorrectText, &p.Solution, &p.Difficulty, &p.OrderNum); err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Create inserts a new problem.
func (r *ProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO problems (exam_id, problem_text, kind, options, correct_answers, correct_text, solution, difficulty, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.ExamID, p.Text, p.Kind, p.Options, p.CorrectAnswers, p.CorrectText, p.Solution, p.Difficulty, p.OrderNum,
	).Scan(&p.ID)
}
