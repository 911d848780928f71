package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/database"
	"github.com/edukit/paperflow-backend/internal/logger"
	"github.com/edukit/paperflow-backend/internal/model"
	"github.com/edukit/paperflow-backend/internal/repository"
	"github.com/edukit/paperflow-backend/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	examRepo := repository.NewExamRepository(pool)
	problemRepo := repository.NewProblemRepository(pool)
	examService := service.NewExamService(examRepo, problemRepo, rdb, log)

	fmt.Println("=== Seeding demo exam ===")

	const authorID = 1
	exam := &model.Exam{
		Title:           "Mathematics Placement Test",
		AuthorID:        authorID,
		DurationMinutes: 60,
	}
	if err := examService.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}
	fmt.Printf("Created exam %s\n", exam.ID)

	options := func(vals ...string) json.RawMessage {
		raw, _ := json.Marshal(vals)
		return raw
	}

	problems := []*model.Problem{
		{
			Text:           "Which of the following numbers are prime?",
			Kind:           model.ProblemMultiSelect,
			Options:        options("2", "4", "7", "9"),
			CorrectAnswers: []string{"2", "7"},
			Solution:       "A prime number has exactly two divisors.\n\n2 is prime: its divisors are 1 and 2.\n7 is prime: its divisors are 1 and 7.\n\n4 = 2x2 and 9 = 3x3, so neither is prime.",
			Difficulty:     model.DifficultyEasy,
			OrderNum:       1,
		},
		{
			Text:           "What is the derivative of x^2?",
			Kind:           model.ProblemSingleSelect,
			Options:        options("x", "2x", "x^2", "2"),
			CorrectAnswers: []string{"2x"},
			Solution:       "Apply the power rule: d/dx x^n = n*x^(n-1).\n\nWith n = 2 this gives 2x.",
			Difficulty:     model.DifficultyMedium,
			OrderNum:       2,
		},
		{
			Text:        "Compute 6 x 7.",
			Kind:        model.ProblemFreeText,
			CorrectText: "42",
			Difficulty:  model.DifficultyEasy,
			OrderNum:    3,
		},
		{
			Text:       "Explain why the square root of 2 is irrational.",
			Kind:       model.ProblemOpenResponse,
			Solution:   "Assume sqrt(2) = p/q in lowest terms.\n\nThen p^2 = 2q^2, so p is even; write p = 2k.\n\nThen q^2 = 2k^2, so q is even too, contradicting lowest terms.",
			Difficulty: model.DifficultyHard,
			OrderNum:   4,
		},
	}

	for _, p := range problems {
		if err := examService.AddProblem(ctx, exam.ID, authorID, p); err != nil {
			log.Fatal().Err(err).Str("text", p.Text).Msg("Failed to add problem")
		}
	}
	fmt.Printf("Added %d problems\n", len(problems))

	if err := examService.Publish(ctx, exam.ID, authorID); err != nil {
		log.Fatal().Err(err).Msg("Failed to publish exam")
	}
	fmt.Printf("Published exam %s and warmed its cache\n", exam.ID)
}
