package models

import (
	"time"
)

// Capture request lifecycle states. pending -> processing -> one of the
// terminal states; terminal rows are never reopened.
const (
	CaptureStatusPending            = "pending"
	CaptureStatusProcessing         = "processing"
	CaptureStatusCompleted          = "completed"
	CaptureStatusPartiallyCompleted = "partially_completed"
	CaptureStatusFailed             = "failed"
)

// CaptureRequest is a historical ingestion job: discover markets in a
// date window (optionally scoped to a category), then import their
// metadata and price history.
type CaptureRequest struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"type:varchar(100);not null;index"`

	Name       *string `gorm:"type:varchar(200)"`
	Status     string  `gorm:"type:varchar(30);not null;index;default:'pending'"`
	Category   *string `gorm:"type:varchar(100)"`
	SearchTerm *string `gorm:"type:varchar(200)"`

	DateRangeStart time.Time `gorm:"type:timestamptz;not null"`
	DateRangeEnd   time.Time `gorm:"type:timestamptz;not null"`
	MarketLimit    int       `gorm:"not null"`

	// Progress counters. TotalMarkets is fixed at discovery time;
	// Processed + Failed converge to it as batches run.
	TotalMarkets int `gorm:"not null;default:0"`
	Processed    int `gorm:"not null;default:0"`
	Failed       int `gorm:"not null;default:0"`

	ErrorMessage *string `gorm:"type:text"`

	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;autoUpdateTime"`
	CompletedAt *time.Time `gorm:"type:timestamptz"`
}

func (CaptureRequest) TableName() string {
	return "capture_requests"
}

// Terminal reports whether the request reached a final state.
func (r *CaptureRequest) Terminal() bool {
	switch r.Status {
	case CaptureStatusCompleted, CaptureStatusPartiallyCompleted, CaptureStatusFailed:
		return true
	}
	return false
}
