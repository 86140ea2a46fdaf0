package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Market is a captured Polymarket market. Outcomes, OutcomePrices and
// ClobTokenIDs are parallel jsonb arrays; upstream sometimes delivers them
// as JSON-encoded strings, the client normalizes them to real arrays before
// rows are written.
type Market struct {
	ID               uint64  `gorm:"primaryKey;autoIncrement"`
	EventID          *uint64 `gorm:"index"`
	CaptureRequestID uint64  `gorm:"not null;index"`
	UserID           string  `gorm:"type:varchar(100);not null;index"`

	PolymarketMarketID string  `gorm:"type:varchar(100);not null;index"`
	Question           string  `gorm:"type:text;not null"`
	Slug               string  `gorm:"type:varchar(300)"`
	ConditionID        *string `gorm:"type:varchar(100)"`
	Category           *string `gorm:"type:varchar(100);index"`

	Outcomes      datatypes.JSON `gorm:"type:jsonb"`
	OutcomePrices datatypes.JSON `gorm:"type:jsonb"`
	ClobTokenIDs  datatypes.JSON `gorm:"type:jsonb"`

	Active bool `gorm:"not null;default:false"`
	Closed bool `gorm:"not null;default:false;index"`

	Volume    *decimal.Decimal `gorm:"type:numeric(30,10)"`
	Liquidity *decimal.Decimal `gorm:"type:numeric(30,10)"`

	LastTradePrice *decimal.Decimal `gorm:"type:numeric(20,10)"`
	BestBid        *decimal.Decimal `gorm:"type:numeric(20,10)"`
	BestAsk        *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Spread         *decimal.Decimal `gorm:"type:numeric(20,10)"`

	UmaResolutionStatus *string `gorm:"type:varchar(50)"`
	ResolvedBy          *string `gorm:"type:varchar(100)"`
	// ResolvedOutcome is set only for closed markets when exactly derivable
	// from the final prices.
	ResolvedOutcome *string `gorm:"type:varchar(200)"`

	PolymarketEventID *string `gorm:"type:varchar(100);index"`
	EventTitle        *string `gorm:"type:text"`
	EventSlug         *string `gorm:"type:varchar(300)"`

	StartTime           *time.Time `gorm:"type:timestamptz"`
	EndTime             *time.Time `gorm:"type:timestamptz"`
	ClosedTime          *time.Time `gorm:"type:timestamptz"`
	PolymarketCreatedAt *time.Time `gorm:"type:timestamptz"`

	Tags datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Market) TableName() string {
	return "captured_markets"
}
