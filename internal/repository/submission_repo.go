package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// SubmissionRepository exposes persistence helpers for judged submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error)
	LatestByStudent(ctx context.Context, studentID string) (models.Submission, error)
	// ListByRoom returns every submission whose test case belongs to the room,
	// newest first. When after is non-zero only submissions created after that
	// instant are returned.
	ListByRoom(ctx context.Context, roomID string, after time.Time) ([]models.Submission, error)
	ListByTestCase(ctx context.Context, testCaseID string) ([]models.Submission, error)
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Preload("TestCase").
		Where("student_id = ?", studentID).
		Order("created_at desc").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) LatestByStudent(ctx context.Context, studentID string) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("TestCase").
		Where("student_id = ?", studentID).
		Order("created_at desc").
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByRoom(ctx context.Context, roomID string, after time.Time) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN test_cases ON test_cases.id = submissions.test_case_id").
		Where("test_cases.room_id = ?", roomID)

	if !after.IsZero() {
		query = query.Where("submissions.created_at > ?", after)
	}

	var submissions []models.Submission
	err := query.Order("submissions.created_at desc").Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListByTestCase(ctx context.Context, testCaseID string) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("test_case_id = ?", testCaseID).
		Order("created_at asc").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}
