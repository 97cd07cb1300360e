package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/repository"
)

// RoomService exposes the HTTP-facing room operations.
type RoomService interface {
	Create(ctx context.Context, ownerID, role string, payload dto.RoomCreateRequest) (dto.RoomResponse, error)
	Get(ctx context.Context, roomID string) (dto.RoomResponse, error)
}

type roomService struct {
	rooms     repository.RoomRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRoomService constructs the room service.
func NewRoomService(rooms repository.RoomRepository, validate *validator.Validate, logger zerolog.Logger) RoomService {
	return &roomService{
		rooms:     rooms,
		validator: validate,
		logger:    logger.With().Str("component", "room_service").Logger(),
	}
}

func (s *roomService) Create(ctx context.Context, ownerID, role string, payload dto.RoomCreateRequest) (dto.RoomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RoomResponse{}, err
	}
	if role != RoleTeacher {
		return dto.RoomResponse{}, ErrNotRoomTeacher
	}

	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = uuid.NewString()
	}

	room, err := s.rooms.EnsureExists(ctx, id, ownerID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	s.logger.Info().Str("room_id", room.ID).Str("owner_id", ownerID).Msg("room created")
	return dto.NewRoomResponse(room), nil
}

func (s *roomService) Get(ctx context.Context, roomID string) (dto.RoomResponse, error) {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RoomResponse{}, ErrRoomNotFound
		}
		return dto.RoomResponse{}, err
	}

	return dto.NewRoomResponse(room), nil
}
