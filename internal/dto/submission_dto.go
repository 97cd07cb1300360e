package dto

import (
	"time"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// SubmissionRequest represents the payload for submitting code against a test case.
type SubmissionRequest struct {
	TestCaseID       string `json:"test_case_id" validate:"required,max=64"`
	LanguageID       int    `json:"language_id" validate:"required,gt=0"`
	Source           string `json:"source" validate:"required,min=1"`
	TimeTakenSeconds int    `json:"time_taken_seconds" validate:"omitempty,gte=0"`
}

// SubmissionResponse represents a judged submission to API consumers.
type SubmissionResponse struct {
	ID               string    `json:"id"`
	StudentID        string    `json:"student_id"`
	TestCaseID       string    `json:"test_case_id"`
	LanguageID       int       `json:"language_id"`
	Status           string    `json:"status"`
	Output           string    `json:"output"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewSubmissionResponse builds a response DTO from a model.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:               submission.ID,
		StudentID:        submission.StudentID,
		TestCaseID:       submission.TestCaseID,
		LanguageID:       submission.LanguageID,
		Status:           submission.Status,
		Output:           submission.Output,
		TimeTakenSeconds: submission.TimeTakenSeconds,
		CreatedAt:        submission.CreatedAt,
	}
}
