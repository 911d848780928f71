package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/layout"
	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/report"
	"github.com/edukit/paperflow-backend/internal/repository"
)

// Domain errors
var (
	ErrNotExamAuthor    = errors.New("not the author of this exam")
	ErrNoProblems       = errors.New("exam has no problems, cannot publish")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
)

// ExamService handles exam business logic and Redis caching. Publishing
// assembles the exam paper once: problem statements plus solution
// chunks, in document order, with canonical answers stripped out.
type ExamService struct {
	examRepo    *repository.ExamRepository
	problemRepo *repository.ProblemRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	problemRepo *repository.ProblemRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:    examRepo,
		problemRepo: problemRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListPublished retrieves exams students can currently join.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.ListPublished(ctx)
}

// Create inserts a new exam as DRAFT.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam) error {
	exam.Status = model.ExamStatusDraft
	return s.examRepo.Create(ctx, exam)
}

// AddProblem appends a problem to a draft exam.
func (s *ExamService) AddProblem(ctx context.Context, examID uuid.UUID, authorID int, p *model.Problem) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	p.ExamID = examID
	return s.problemRepo.Create(ctx, p)
}

// Publish changes exam status to PUBLISHED and prewarms the assembled
// paper, answer key and duration into Redis so joins never hit
// PostgreSQL on the hot path.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam published")
	return nil
}

// RefreshCache re-caches the paper and answer key for a published exam.
// Called when problems are edited after publish.
func (s *ExamService) RefreshCache(ctx context.Context, examID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}

	if authorID != 0 && exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}
	if exam.Status != model.ExamStatusPublished {
		return ErrExamNotPublished
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Cache refreshed")
	return nil
}

// WarmExamCache assembles the paper from PostgreSQL and stores paper,
// answer key and duration in Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	problems, err := s.problemRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list problems: %w", err)
	}
	if len(problems) == 0 {
		return ErrNoProblems
	}

	paper := AssemblePaper(exam, problems)
	rawPaper, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}

	defs := report.DefsFromProblems(problems)
	rawKey, err := json.Marshal(defs)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPaperKey(exam.ID.String()), rawPaper, 0)
	pipe.Set(ctx, config.CacheKey.ExamAnswerKey(exam.ID.String()), rawKey, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(exam.ID.String()), exam.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache exam: %w", err)
	}

	return nil
}

// GetPaper returns the cached exam paper, falling back to PostgreSQL
// and self-healing the cache on a miss.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Result()
	if err == nil {
		paper := &model.ExamPaper{}
		if err := json.Unmarshal([]byte(raw), paper); err != nil {
			return nil, fmt.Errorf("corrupt cached paper: %w", err)
		}
		return paper, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached paper: %w", err)
	}

	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}

	problems, err := s.problemRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return AssemblePaper(exam, problems), nil
}

// GetAnswerKey returns the cached scoring definitions for an exam,
// falling back to PostgreSQL on a miss.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) ([]report.ItemDef, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err == nil {
		var defs []report.ItemDef
		if err := json.Unmarshal([]byte(raw), &defs); err != nil {
			return nil, fmt.Errorf("corrupt cached answer key: %w", err)
		}
		return defs, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached answer key: %w", err)
	}

	problems, err := s.problemRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return report.DefsFromProblems(problems), nil
}

// AssemblePaper builds the device-facing paper: one item per problem
// statement plus one item per solution chunk, canonical answers
// stripped.
func AssemblePaper(exam *model.Exam, problems []model.Problem) *model.ExamPaper {
	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
	}

	for _, p := range problems {
		paper.Items = append(paper.Items, model.PaperItem{
			ID:         p.ID.String(),
			Kind:       string(layout.KindProblem),
			Text:       p.Text,
			Options:    p.Options,
			AnswerKind: p.Kind,
			Difficulty: p.Difficulty,
		})
		for _, chunk := range layout.SplitSolution(p.ID.String(), p.Solution) {
			paper.Items = append(paper.Items, model.PaperItem{
				ID:       chunk.ID,
				Kind:     string(layout.KindChunk),
				ParentID: chunk.ParentID,
				Text:     chunk.Text,
			})
		}
	}

	return paper
}
