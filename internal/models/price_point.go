package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one raw sample of a token's price series as returned by
// the CLOB history endpoint. Re-running a capture over the same window can
// insert duplicate timestamps; readers order by ts and tolerate that.
type PricePoint struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	MarketID         uint64 `gorm:"not null;index:idx_price_history_market_token"`
	CaptureRequestID uint64 `gorm:"not null;index"`
	UserID           string `gorm:"type:varchar(100);not null;index"`

	ClobTokenID  string `gorm:"type:varchar(120);not null;index:idx_price_history_market_token"`
	OutcomeLabel string `gorm:"type:varchar(200);not null"`

	TS    time.Time       `gorm:"type:timestamptz;not null;index"`
	Price decimal.Decimal `gorm:"type:numeric(20,10);not null"`
}

func (PricePoint) TableName() string {
	return "price_history"
}
