package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/cache"
	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

// ErrTestCaseNotFound indicates the test case cannot be located.
var ErrTestCaseNotFound = errors.New("test case not found")

// ErrRoomNotFound indicates the room cannot be located.
var ErrRoomNotFound = errors.New("room not found")

// ErrNotRoomTeacher indicates the caller may not publish into the room.
var ErrNotRoomTeacher = errors.New("only the teacher can manage test cases")

// TestCaseService owns the test case publish pipeline: durable write first,
// then cache write-through, then broadcast to the room.
type TestCaseService interface {
	Upsert(ctx context.Context, roomID, userID, role string, payload dto.TestCaseUpsertRequest) (dto.TestCaseResponse, error)
	Publish(ctx context.Context, roomID, testCaseID, userID, role string, payload dto.TestCasePublishRequest) (dto.TestCaseResponse, error)
	List(ctx context.Context, roomID string) ([]dto.TestCaseResponse, error)
	Get(ctx context.Context, testCaseID string) (dto.TestCaseResponse, error)
}

type testCaseService struct {
	testCases repository.TestCaseRepository
	rooms     repository.RoomRepository
	store     *cache.Store
	locks     *cache.KeyedMutex
	live      LiveService
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	cacheTTL  time.Duration
}

// NewTestCaseService constructs the test case service.
func NewTestCaseService(testCases repository.TestCaseRepository, rooms repository.RoomRepository, store *cache.Store, live LiveService, validate *validator.Validate, logger zerolog.Logger, cacheTTL time.Duration) TestCaseService {
	return &testCaseService{
		testCases: testCases,
		rooms:     rooms,
		store:     store,
		locks:     cache.NewKeyedMutex(),
		live:      live,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "test_case_service").Logger(),
		cacheTTL:  cacheTTL,
	}
}

func roomTestCasesKey(roomID string) string {
	return fmt.Sprintf("room:%s:testcases", roomID)
}

func testCaseKey(testCaseID string) string {
	return fmt.Sprintf("testcase:%s", testCaseID)
}

func (s *testCaseService) Upsert(ctx context.Context, roomID, userID, role string, payload dto.TestCaseUpsertRequest) (dto.TestCaseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestCaseResponse{}, err
	}
	if role != RoleTeacher {
		return dto.TestCaseResponse{}, ErrNotRoomTeacher
	}

	// A publish into a room nobody created yet creates the room lazily,
	// mirroring the join path.
	if _, err := s.rooms.EnsureExists(ctx, roomID, userID); err != nil {
		return dto.TestCaseResponse{}, err
	}

	testCase := models.TestCase{
		ID:          strings.TrimSpace(payload.ID),
		RoomID:      roomID,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Input:       payload.Input,
		CreatedBy:   userID,
	}
	if testCase.ID == "" {
		testCase.ID = uuid.NewString()
	}

	s.locks.Lock(testCase.ID)
	defer s.locks.Unlock(testCase.ID)

	if err := s.testCases.Upsert(ctx, &testCase); err != nil {
		return dto.TestCaseResponse{}, err
	}

	persisted, err := s.testCases.GetByID(ctx, testCase.ID)
	if err != nil {
		return dto.TestCaseResponse{}, err
	}

	s.writeThrough(ctx, persisted)

	total, err := s.testCases.CountByRoom(ctx, roomID)
	if err != nil {
		s.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to count test cases for broadcast")
		total = 0
	}

	response := dto.NewTestCaseResponse(persisted)
	s.live.BroadcastTestCaseCreated(roomID, dto.TestCaseCreatedEvent{
		TestCase:       response,
		TotalTestCases: int(total),
		Timestamp:      s.live.Stamp(roomID, dto.EventTestCaseCreated),
	})

	return response, nil
}

func (s *testCaseService) Publish(ctx context.Context, roomID, testCaseID, userID, role string, payload dto.TestCasePublishRequest) (dto.TestCaseResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TestCaseResponse{}, err
	}
	if role != RoleTeacher {
		return dto.TestCaseResponse{}, ErrNotRoomTeacher
	}

	s.locks.Lock(testCaseID)
	defer s.locks.Unlock(testCaseID)

	testCase, err := s.testCases.GetByID(ctx, testCaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestCaseResponse{}, ErrTestCaseNotFound
		}
		return dto.TestCaseResponse{}, err
	}
	if testCase.RoomID != roomID {
		return dto.TestCaseResponse{}, ErrTestCaseNotFound
	}

	testCase.ExpectedOutput = payload.ExpectedOutput
	testCase.Published = true

	if err := s.testCases.Upsert(ctx, &testCase); err != nil {
		return dto.TestCaseResponse{}, err
	}

	s.writeThrough(ctx, testCase)

	response := dto.NewTestCaseResponse(testCase)
	s.live.BroadcastTestCasePublished(roomID, dto.TestCasePublishedEvent{
		TestCase:  response,
		Timestamp: s.live.Stamp(roomID, dto.EventTestCasePublished),
	})

	return response, nil
}

// List reads through the cache: hit returns directly, miss falls back to the
// durable store and repopulates the cache.
func (s *testCaseService) List(ctx context.Context, roomID string) ([]dto.TestCaseResponse, error) {
	var cached []models.TestCase
	if err := s.store.Get(ctx, roomTestCasesKey(roomID), &cached); err == nil {
		s.logger.Debug().Str("room_id", roomID).Msg("test case list cache hit")
		return dto.NewTestCaseResponseSlice(cached), nil
	}

	testCases, err := s.testCases.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	s.store.Set(ctx, roomTestCasesKey(roomID), testCases, s.cacheTTL)

	return dto.NewTestCaseResponseSlice(testCases), nil
}

func (s *testCaseService) Get(ctx context.Context, testCaseID string) (dto.TestCaseResponse, error) {
	var cached models.TestCase
	if err := s.store.Get(ctx, testCaseKey(testCaseID), &cached); err == nil {
		return dto.NewTestCaseResponse(cached), nil
	}

	testCase, err := s.testCases.GetByID(ctx, testCaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestCaseResponse{}, ErrTestCaseNotFound
		}
		return dto.TestCaseResponse{}, err
	}

	s.store.Set(ctx, testCaseKey(testCaseID), testCase, s.cacheTTL)

	return dto.NewTestCaseResponse(testCase), nil
}

// writeThrough updates both the entity key and the room's cached list after a
// successful durable write, replacing an existing entry by id or appending.
// Runs under the per-test-case lock so racing publishes land in durable
// completion order.
func (s *testCaseService) writeThrough(ctx context.Context, testCase models.TestCase) {
	s.store.Set(ctx, testCaseKey(testCase.ID), testCase, s.cacheTTL)

	key := roomTestCasesKey(testCase.RoomID)
	var list []models.TestCase
	if err := s.store.Get(ctx, key, &list); err != nil {
		// No cached list to maintain; the next List call repopulates it.
		return
	}

	replaced := false
	for i := range list {
		if list[i].ID == testCase.ID {
			list[i] = testCase
			replaced = true
			break
		}
	}
	if !replaced {
		list = append(list, testCase)
	}

	s.store.Set(ctx, key, list, s.cacheTTL)
}
