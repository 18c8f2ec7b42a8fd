package models

import (
	"time"
)

// Measurement is one level reading taken from a single snapshot. Failed runs
// are recorded too (with the reason) instead of being deleted, so an operator
// can review bad captures from the front-end.
type Measurement struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MeasuredAt   time.Time `gorm:"index;not null"`
	LevelCm      float64
	LevelLiter   float64
	LevelPixel   int
	SnapshotPath string `gorm:"size:512"` // stored snapshot the reading came from
	Failed       bool   `gorm:"default:false;index"`
	FailedReason string `gorm:"size:255"`
}
