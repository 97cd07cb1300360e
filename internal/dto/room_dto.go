package dto

import (
	"time"

	"github.com/noah-isme/gema-live-api/internal/models"
)

// RoomCreateRequest represents the payload for creating a room.
type RoomCreateRequest struct {
	ID string `json:"id" validate:"omitempty,max=64"`
}

// RoomResponse is the serialized representation of a room including its
// current shared editor state.
type RoomResponse struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Code       string    `json:"code"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	LanguageID int       `json:"language_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewRoomResponse converts a model into a DTO.
func NewRoomResponse(room models.Room) RoomResponse {
	return RoomResponse{
		ID:         room.ID,
		OwnerID:    room.OwnerID,
		Code:       room.Code,
		Input:      room.Input,
		Output:     room.Output,
		LanguageID: room.LanguageID,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}
