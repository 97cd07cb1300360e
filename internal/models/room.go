package models

import "time"

// Room is a named live session owned by one teacher. The Code, Input, Output
// and LanguageID columns mirror the shared editor state last broadcast to the
// room so that late joiners can be brought up to date.
type Room struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	OwnerID    string     `gorm:"size:64;index" json:"owner_id"`
	Code       string     `gorm:"type:text" json:"code"`
	Input      string     `gorm:"type:text" json:"input"`
	Output     string     `gorm:"type:text" json:"output"`
	LanguageID int        `gorm:"default:0" json:"language_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	TestCases  []TestCase `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"test_cases,omitempty"`
}
