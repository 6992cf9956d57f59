package models

import (
	"time"
)

// User model. MainCharacter* is the pinned identity used for party scans.
type User struct {
	ID                  uint `gorm:"primaryKey"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	DeletedAt           *time.Time `gorm:"index"`
	Username            string     `gorm:"size:255;not null;unique"`
	HashedPassword      []byte     `gorm:"not null"`
	MainCharacterName   string     `gorm:"size:64"`
	MainCharacterServer string     `gorm:"size:32"`
	RoleID              *uint      `gorm:"index"`
	Role                Role       `gorm:"foreignKey:RoleID;references:ID"`
}
