package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

// StatsService derives student and room statistics from the submission set.
// Nothing here is persisted; every call recomputes from the durable store so
// the numbers can never go stale.
type StatsService interface {
	StudentStats(ctx context.Context, studentID string) (dto.StudentStatsResponse, error)
	// RoomStats computes the teacher view. window bounds the "active" student
	// count; zero falls back to the configured default.
	RoomStats(ctx context.Context, roomID string, window time.Duration) (dto.RoomStatsResponse, error)
}

type statsService struct {
	submissions  repository.SubmissionRepository
	testCases    repository.TestCaseRepository
	logger       zerolog.Logger
	activeWindow time.Duration
	now          func() time.Time
}

// NewStatsService constructs the statistics aggregator.
func NewStatsService(submissions repository.SubmissionRepository, testCases repository.TestCaseRepository, logger zerolog.Logger, activeWindow time.Duration) StatsService {
	if activeWindow <= 0 {
		activeWindow = 30 * time.Minute
	}

	return &statsService{
		submissions:  submissions,
		testCases:    testCases,
		logger:       logger.With().Str("component", "stats_service").Logger(),
		activeWindow: activeWindow,
		now:          time.Now,
	}
}

func (s *statsService) StudentStats(ctx context.Context, studentID string) (dto.StudentStatsResponse, error) {
	submissions, err := s.submissions.ListByStudent(ctx, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.StudentStatsResponse{}, err
	}

	response := dto.StudentStatsResponse{
		StudentID:       studentID,
		SolvedTestCases: []string{},
	}
	if len(submissions) == 0 {
		return response, nil
	}

	attempted := map[string]struct{}{}
	solved := map[string]struct{}{}
	for _, submission := range submissions {
		attempted[submission.TestCaseID] = struct{}{}
		if submission.IsSolved() {
			solved[submission.TestCaseID] = struct{}{}
		}
	}

	response.TotalAttempted = len(attempted)
	response.TotalSolved = len(solved)
	for id := range solved {
		response.SolvedTestCases = append(response.SolvedTestCases, id)
	}
	sort.Strings(response.SolvedTestCases)

	// "Active" is scoped to the room of the student's most recent submission,
	// not a global test-case count.
	latestRoom := submissions[0].TestCase.RoomID
	if latestRoom != "" {
		total, err := s.testCases.CountByRoom(ctx, latestRoom)
		if err != nil {
			return dto.StudentStatsResponse{}, err
		}
		response.TotalActive = int(total)
	}

	return response, nil
}

func (s *statsService) RoomStats(ctx context.Context, roomID string, window time.Duration) (dto.RoomStatsResponse, error) {
	if window <= 0 {
		window = s.activeWindow
	}

	submissions, err := s.submissions.ListByRoom(ctx, roomID, time.Time{})
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RoomStatsResponse{}, err
	}

	cutoff := s.now().Add(-window)

	activeStudents := map[string]struct{}{}
	attempted := map[string]struct{}{}
	solved := map[string]struct{}{}
	perStudent := map[string]*studentAccumulator{}
	order := []string{}

	for _, submission := range submissions {
		if submission.CreatedAt.After(cutoff) {
			activeStudents[submission.StudentID] = struct{}{}
		}

		attempted[submission.TestCaseID] = struct{}{}
		if submission.IsSolved() {
			solved[submission.TestCaseID] = struct{}{}
		}

		acc, ok := perStudent[submission.StudentID]
		if !ok {
			acc = newStudentAccumulator()
			perStudent[submission.StudentID] = acc
			order = append(order, submission.StudentID)
		}
		acc.add(submission)
	}

	sort.Strings(order)

	breakdown := make([]dto.StudentBreakdown, 0, len(order))
	for _, studentID := range order {
		breakdown = append(breakdown, perStudent[studentID].result(studentID))
	}

	return dto.RoomStatsResponse{
		RoomID:         roomID,
		TotalActive:    len(activeStudents),
		TotalAttempted: len(attempted),
		TotalSolved:    len(solved),
		PerStudent:     breakdown,
	}, nil
}

type studentAccumulator struct {
	attempted  map[string]struct{}
	solved     map[string]struct{}
	solvedTime int
	solvedSubs int
}

func newStudentAccumulator() *studentAccumulator {
	return &studentAccumulator{
		attempted: map[string]struct{}{},
		solved:    map[string]struct{}{},
	}
}

func (a *studentAccumulator) add(submission models.Submission) {
	a.attempted[submission.TestCaseID] = struct{}{}
	if submission.IsSolved() {
		a.solved[submission.TestCaseID] = struct{}{}
		a.solvedTime += submission.TimeTakenSeconds
		a.solvedSubs++
	}
}

// result computes the breakdown. Average time covers solved submissions only,
// rounded to the nearest second, and is zero for a student with no solves.
func (a *studentAccumulator) result(studentID string) dto.StudentBreakdown {
	average := 0
	if a.solvedSubs > 0 {
		average = int(math.Round(float64(a.solvedTime) / float64(a.solvedSubs)))
	}

	return dto.StudentBreakdown{
		StudentID:          studentID,
		Attempted:          len(a.attempted),
		Solved:             len(a.solved),
		AverageTimeSeconds: average,
	}
}
