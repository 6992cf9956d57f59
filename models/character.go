package models

import "time"

// Character is a cached directory record. Rows come from live search write-through
// and are matched by (server_id, name) or by the external character id.
type Character struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CharacterID string  `gorm:"size:128;uniqueIndex"`
	Name        string  `gorm:"size:64;not null;index:idx_characters_server_name,priority:2"`
	ServerID    int     `gorm:"not null;index:idx_characters_server_name,priority:1"`
	ServerName  string  `gorm:"size:32"`
	Level       int     `gorm:"default:0"`
	ClassName   string  `gorm:"size:64"`
	Race        string  `gorm:"size:16"`
	PowerScore  float64 `gorm:"default:0"`
}
