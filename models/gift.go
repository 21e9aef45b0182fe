package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Gift is one submission: an uploaded image, a public caption and a
// private message for the recipient. UserID is set once at creation and
// never reassigned. BlurDataURL is a derived preview and may be NULL
// when generation failed; nothing on the write path depends on it.
type Gift struct {
	gorm.Model

	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;<-:false"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Message     string    `gorm:"type:text;not null"`
	ImageURL    string    `gorm:"type:text;not null"`
	BlurDataURL *string   `gorm:"type:text"`

	User User
}
