package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary holds the downsampled price series: at most four rows per
// token per UTC day, one per target hour (0, 6, 12, 18). The unique index
// absorbs duplicate slots across repeated captures via upsert.
type DailySummary struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID         uint64 `gorm:"not null;uniqueIndex:idx_daily_summary_slot"`
	CaptureRequestID uint64 `gorm:"not null;index"`
	UserID           string `gorm:"type:varchar(100);not null;index"`

	ClobTokenID  string `gorm:"type:varchar(120);not null;uniqueIndex:idx_daily_summary_slot"`
	OutcomeLabel string `gorm:"type:varchar(200);not null"`

	Date string `gorm:"type:varchar(10);not null;uniqueIndex:idx_daily_summary_slot"`
	Hour int    `gorm:"not null;uniqueIndex:idx_daily_summary_slot"`

	Price decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	// Legacy OHLC shape kept for readers of the old schema; a slot has a
	// single sample so all five carry the same value.
	NoonPrice  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	OpenPrice  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	ClosePrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	HighPrice  decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	LowPrice   decimal.Decimal `gorm:"type:numeric(20,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DailySummary) TableName() string {
	return "daily_price_summaries"
}
