package models

import (
	"time"
)

// Extraction status values.
const (
	StatusDone   = "done"
	StatusFailed = "failed"
)

// Extraction records one image-to-table conversion.
type Extraction struct {
	ID          string `gorm:"primaryKey;size:36"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClientID    *uint  `gorm:"index"`
	ClientName  string `gorm:"size:255;index"`
	Source      string `gorm:"size:16;not null;default:api"` // api or watch
	FileName    string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:128"`
	RowCount    int
	CellCount   int
	CSV         string `gorm:"column:csv;type:text"`
	Status      string `gorm:"size:16;index;not null"`
	// Failed extractions keep the record so the client can see why.
	FailedReason string `gorm:"size:255"`
	ImagePath    string `gorm:"size:512"` // bucket/object of the archived image
	OutputPath   string `gorm:"size:512"` // bucket/object of the archived CSV
	DurationMS   int64
}
