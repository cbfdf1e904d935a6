package models

import (
	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/utils"
)

func MigrateTable() {
	db := config.GetDB()

	utils.ErrorPanic(db.AutoMigrate(
		&Region{}, &StoreCategory{},
		&Store{},
		&Menu{}, &MenuOption{}, &StockLedger{},
		&Review{},
	))
}
