package models

import "time"

// TestCase is an exercise published into a room. A test case starts as a
// draft; confirming its expected output marks it published and makes it
// visible to students for solving.
type TestCase struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	RoomID         string    `gorm:"size:64;index;not null" json:"room_id"`
	Title          string    `gorm:"size:255" json:"title"`
	Description    string    `gorm:"type:text" json:"description"`
	Input          string    `gorm:"type:text" json:"input"`
	ExpectedOutput string    `gorm:"type:text" json:"expected_output"`
	CreatedBy      string    `gorm:"size:64" json:"created_by"`
	Published      bool      `gorm:"default:false" json:"published"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
