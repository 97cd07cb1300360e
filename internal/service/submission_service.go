package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/cache"
	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/judge"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

// SubmissionService runs the judged-submission pipeline: judge the code,
// persist the result, refresh the cached status map, and broadcast the
// outcome to the room.
type SubmissionService interface {
	Submit(ctx context.Context, studentID string, payload dto.SubmissionRequest) (dto.SubmissionResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	testCases   repository.TestCaseRepository
	judge       judge.Client
	store       *cache.Store
	locks       *cache.KeyedMutex
	live        LiveService
	validator   *validator.Validate
	logger      zerolog.Logger
	cacheTTL    time.Duration
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(submissions repository.SubmissionRepository, testCases repository.TestCaseRepository, judgeClient judge.Client, store *cache.Store, live LiveService, validate *validator.Validate, logger zerolog.Logger, cacheTTL time.Duration) SubmissionService {
	return &submissionService{
		submissions: submissions,
		testCases:   testCases,
		judge:       judgeClient,
		store:       store,
		locks:       cache.NewKeyedMutex(),
		live:        live,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		cacheTTL:    cacheTTL,
	}
}

func statusMapKey(testCaseID string) string {
	return "testcase:" + testCaseID + ":statusmap"
}

func (s *submissionService) Submit(ctx context.Context, studentID string, payload dto.SubmissionRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	// Validation happens before any side effect: a missing test case aborts
	// without touching the judge service.
	testCase, err := s.testCases.GetByID(ctx, payload.TestCaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrTestCaseNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	// The judge call runs without holding any room lock; it takes seconds
	// while broadcasts take microseconds.
	result, err := s.judge.Judge(ctx, payload.LanguageID, payload.Source, testCase.Input)
	if err != nil {
		// No partial submission is persisted on a judging failure.
		return dto.SubmissionResponse{}, err
	}

	// The verdict is a pure function of the trimmed outputs at judging time.
	status := models.SubmissionStatusNotSolved
	if strings.TrimSpace(result.Stdout) == strings.TrimSpace(testCase.ExpectedOutput) {
		status = models.SubmissionStatusSolved
	}

	submission := models.Submission{
		ID:               uuid.NewString(),
		StudentID:        studentID,
		TestCaseID:       testCase.ID,
		LanguageID:       payload.LanguageID,
		Source:           payload.Source,
		Output:           result.Stdout,
		Status:           status,
		TimeTakenSeconds: payload.TimeTakenSeconds,
		JudgeMeta: datatypes.JSONMap{
			"status_id":          result.StatusID,
			"status_description": result.StatusDescription,
			"stderr":             result.Stderr,
		},
	}

	// Persisting and refreshing the cached status map are serialized per test
	// case so racing submissions write through in completion order.
	s.locks.Lock(testCase.ID)
	defer s.locks.Unlock(testCase.ID)

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	statusMap, err := s.live.StatusMap(ctx, testCase.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("test_case_id", testCase.ID).Msg("failed to rebuild status map")
		statusMap = map[string]string{studentID: status}
	}

	s.store.Set(ctx, statusMapKey(testCase.ID), statusMap, s.cacheTTL)

	// Broadcasting to a room nobody is connected to is a no-op; a student who
	// disconnected while judging simply never sees the update.
	s.live.BroadcastSubmissionUpdate(testCase.RoomID, dto.SubmissionUpdate{
		TestCaseID: testCase.ID,
		StudentID:  studentID,
		Status:     status,
		StatusMap:  statusMap,
	})

	s.logger.Info().
		Str("student_id", studentID).
		Str("test_case_id", testCase.ID).
		Str("status", status).
		Msg("submission judged")

	return dto.NewSubmissionResponse(submission), nil
}
