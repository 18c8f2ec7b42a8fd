package models

import (
	"time"
)

// CalibrationPoint is one manually measured (height, pixel) pair for the
// installed strip. The set of rows forms the site's calibration table.
type CalibrationPoint struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	HeightCm    float64 `gorm:"uniqueIndex;not null"`
	PixelOffset float64 `gorm:"not null"`
}
