package models

import (
	"time"
)

// Upload is a party screenshot submitted for a scan. Failed uploads are kept so the
// image can be reviewed when recognition produced nothing.
type Upload struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	UserID       uint   `gorm:"index;not null"`
	ScanID       string `gorm:"size:36;index"`
	FileName     string `gorm:"size:255;not null"`
	StorePath    string `gorm:"column:store_path;size:512"`
	ContentType  string `gorm:"size:128"`
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
