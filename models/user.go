package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an authenticated principal of the gift feed.
// IsAdmin is provisioned at account setup (seed data or the
// --admin-email bootstrap), never derived from the email value
// at request time.
type User struct {
	gorm.Model

	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;<-:false"`
	Email        string    `gorm:"type:varchar(255);not null;unique;<-:create"`
	Name         string    `gorm:"type:varchar(255)"`
	PasswordHash string    `gorm:"type:text;not null"`
	IsAdmin      bool      `gorm:"not null;default:false"`

	Gifts []Gift
}
