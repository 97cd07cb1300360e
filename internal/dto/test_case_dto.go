package dto

import (
	"time"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// TestCaseUpsertRequest represents the payload for creating or updating a test case.
// Supplying an existing ID overwrites that test case in place.
type TestCaseUpsertRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Title       string `json:"title" validate:"omitempty,max=255"`
	Description string `json:"description" validate:"omitempty,max=4000"`
	Input       string `json:"input" validate:"omitempty,max=65535"`
}

// TestCasePublishRequest confirms a test case's expected output and marks it published.
type TestCasePublishRequest struct {
	ExpectedOutput string `json:"expected_output" validate:"required,max=65535"`
}

// TestCaseResponse is the serialized representation of a test case.
type TestCaseResponse struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	CreatedBy      string    `json:"created_by"`
	Published      bool      `json:"published"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTestCaseResponse converts a model into a DTO.
func NewTestCaseResponse(testCase models.TestCase) TestCaseResponse {
	return TestCaseResponse{
		ID:             testCase.ID,
		RoomID:         testCase.RoomID,
		Title:          testCase.Title,
		Description:    testCase.Description,
		Input:          testCase.Input,
		ExpectedOutput: testCase.ExpectedOutput,
		CreatedBy:      testCase.CreatedBy,
		Published:      testCase.Published,
		CreatedAt:      testCase.CreatedAt,
		UpdatedAt:      testCase.UpdatedAt,
	}
}

// NewTestCaseResponseSlice converts a slice of models into DTOs.
func NewTestCaseResponseSlice(testCases []models.TestCase) []TestCaseResponse {
	out := make([]TestCaseResponse, 0, len(testCases))
	for _, testCase := range testCases {
		out = append(out, NewTestCaseResponse(testCase))
	}
	return out
}
