package db

import (
	"github.com/nissand/polymarket-analytics/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.CaptureRequest{},
		&models.Event{},
		&models.Market{},
		&models.PricePoint{},
		&models.DailySummary{},
		&models.Tag{},
	)
}
