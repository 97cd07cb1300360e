package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// TestCaseRepository exposes persistence helpers for test cases.
type TestCaseRepository interface {
	// Upsert writes the test case, overwriting an existing row with the same
	// id. Updates never reorder the room's list: ordering follows creation time.
	Upsert(ctx context.Context, testCase *models.TestCase) error
	GetByID(ctx context.Context, id string) (models.TestCase, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.TestCase, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
}

// NewTestCaseRepository constructs a test case repository.
func NewTestCaseRepository(db *gorm.DB) TestCaseRepository {
	return &testCaseRepository{db: db}
}

type testCaseRepository struct {
	db *gorm.DB
}

func (r *testCaseRepository) Upsert(ctx context.Context, testCase *models.TestCase) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(testCase).Error
}

func (r *testCaseRepository) GetByID(ctx context.Context, id string) (models.TestCase, error) {
	var testCase models.TestCase
	err := r.db.WithContext(ctx).First(&testCase, "id = ?", id).Error
	if err != nil {
		return models.TestCase{}, err
	}
	return testCase, nil
}

func (r *testCaseRepository) ListByRoom(ctx context.Context, roomID string) ([]models.TestCase, error) {
	var testCases []models.TestCase
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Find(&testCases).Error
	if err != nil {
		return nil, err
	}
	return testCases, nil
}

func (r *testCaseRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TestCase{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}
