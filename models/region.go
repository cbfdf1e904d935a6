package models

import (
	"context"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"gorm.io/gorm"
)

// Region is a read-only lookup consumed by the document builder. It is not
// synchronized on its own; its name is embedded into store documents.
type Region struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Province  string    `gorm:"uniqueIndex:idx_region_name,priority:1;size:50;not null" json:"province"`
	City      string    `gorm:"uniqueIndex:idx_region_name,priority:2;size:50;not null" json:"city"`
	District  string    `gorm:"uniqueIndex:idx_region_name,priority:3;size:50;not null" json:"district"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FindOrCreateRegion resolves a region by its natural key, creating it on
// first reference.
func FindOrCreateRegion(ctx context.Context, province, city, district string) (*Region, error) {
	region := Region{
		Province: province,
		City:     city,
		District: district,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("province = ? AND city = ? AND district = ?", province, city, district).
		FirstOrCreate(&region).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

// GetRegion loads one region by id on the given handle, so aggregate
// loaders can ride their own transaction.
func GetRegion(ctx context.Context, tx *gorm.DB, id int) (*Region, error) {
	var region Region
	if err := tx.WithContext(ctx).First(&region, id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}
