package models

import (
	"time"
)

// Tag mirrors the upstream Polymarket tag catalog, refreshed by the daily
// sync job.
type Tag struct {
	ID            string    `gorm:"primaryKey;type:varchar(100)"`
	Label         string    `gorm:"type:text;not null"`
	Slug          string    `gorm:"type:varchar(200);uniqueIndex;not null"`
	LastFetchedAt time.Time `gorm:"type:timestamptz;not null"`
}

func (Tag) TableName() string {
	return "polymarket_tags"
}
