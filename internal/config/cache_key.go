package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSnapshotKey returns the cache key for a student's live session
// snapshot (answer ledger + stopwatch state, write-through on every
// committing mutation).
func (r *CacheKeyStruct) SessionSnapshotKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:session_snapshot", studentID, examID)
}

// ExamPaperKey returns the cache key for an exam's assembled paper
// (ordered layout items, no canonical answers).
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// ExamAnswerKey returns the cache key for an exam's canonical answer key.
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ExamDurationKey returns the cache key for an exam's duration.
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

// StudentActiveExamKey returns the cache key for a student's currently
// active exam.
func (r *CacheKeyStruct) StudentActiveExamKey(studentID int) string {
	return fmt.Sprintf("student:%d:active_exam", studentID)
}

var CacheKey = NewCacheKeyStruct()
