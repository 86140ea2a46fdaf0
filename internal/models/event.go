package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event is an upstream Polymarket event captured for a request. Rows are
// deduplicated by the upstream event id: a re-capture patches only
// category, closed and closed_time on the existing row.
type Event struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	CaptureRequestID uint64 `gorm:"not null;index"`
	UserID           string `gorm:"type:varchar(100);not null;index"`

	PolymarketEventID string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug              string  `gorm:"type:varchar(300)"`
	Title             string  `gorm:"type:text;not null"`
	Description       *string `gorm:"type:text"`
	Category          *string `gorm:"type:varchar(100);index"`

	Active bool `gorm:"not null;default:false"`
	Closed bool `gorm:"not null;default:false;index"`

	PolymarketCreatedAt *time.Time `gorm:"type:timestamptz"`
	StartTime           *time.Time `gorm:"type:timestamptz"`
	EndTime             *time.Time `gorm:"type:timestamptz"`
	ClosedTime          *time.Time `gorm:"type:timestamptz"`

	// Tags is a jsonb array of {id,label,slug} objects as delivered upstream.
	Tags datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Event) TableName() string {
	return "captured_events"
}
