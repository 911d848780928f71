package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/middleware"
)

// issue-token signs a JWT for local development and operations: point a
// device at a running server without standing up an identity provider.
func main() {
	var (
		userID    int
		tokenType string
		ttl       time.Duration
	)
	flag.IntVar(&userID, "user", 1, "User ID to embed in the token")
	flag.StringVar(&tokenType, "type", middleware.TokenTypeStudent, "Token type: student or author")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if tokenType != middleware.TokenTypeStudent && tokenType != middleware.TokenTypeAuthor {
		log.Fatalf("invalid token type %q: must be student or author", tokenType)
	}

	cfg := config.Load()
	token, err := middleware.IssueToken(cfg.JWTSecret, userID, tokenType, ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(token)
}
