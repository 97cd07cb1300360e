package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// RoomRepository exposes persistence helpers for rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (models.Room, error)
	// EnsureExists creates the room if it is not already present. Rooms are
	// created lazily on first join or first test-case publish; there is no
	// reject path for an unknown room id.
	EnsureExists(ctx context.Context, id, ownerID string) (models.Room, error)
	UpdateState(ctx context.Context, id string, fields map[string]interface{}) error
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

type roomRepository struct {
	db *gorm.DB
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (r *roomRepository) EnsureExists(ctx context.Context, id, ownerID string) (models.Room, error) {
	room := models.Room{ID: id, OwnerID: ownerID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&room).Error
	if err != nil {
		return models.Room{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *roomRepository) UpdateState(ctx context.Context, id string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", id).
		Updates(fields).Error
}
