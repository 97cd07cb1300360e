package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission status values. The status is fixed at judging time by comparing
// trimmed outputs and is never recomputed afterwards, even if the test case's
// expected output changes.
const (
	SubmissionStatusSolved    = "Solved"
	SubmissionStatusNotSolved = "Not Solved"
)

// Submission records one judged attempt by a student against a test case.
type Submission struct {
	ID               string            `gorm:"primaryKey;size:64" json:"id"`
	StudentID        string            `gorm:"size:64;index;not null" json:"student_id"`
	TestCaseID       string            `gorm:"size:64;index;not null" json:"test_case_id"`
	LanguageID       int               `gorm:"default:0" json:"language_id"`
	Source           string            `gorm:"type:text" json:"source"`
	Output           string            `gorm:"type:text" json:"output"`
	Status           string            `gorm:"size:32;not null" json:"status"`
	TimeTakenSeconds int               `gorm:"default:0" json:"time_taken_seconds"`
	JudgeMeta        datatypes.JSONMap `json:"judge_meta,omitempty"`
	CreatedAt        time.Time         `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	TestCase         TestCase          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsSolved reports whether the judged output matched the expected output.
func (s Submission) IsSolved() bool {
	return s.Status == SubmissionStatusSolved
}
