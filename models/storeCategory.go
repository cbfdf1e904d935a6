package models

import (
	"context"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"gorm.io/gorm"
)

// StoreCategory is a read-only lookup consumed by the document builder
// (e.g. "Chicken", "Pizza"). Resolved find-or-create by name.
type StoreCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func FindOrCreateStoreCategory(ctx context.Context, name string) (*StoreCategory, error) {
	category := StoreCategory{Name: name}
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("name = ?", name).
		FirstOrCreate(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GetStoreCategory loads one category by id on the given handle.
func GetStoreCategory(ctx context.Context, tx *gorm.DB, id int) (*StoreCategory, error) {
	var category StoreCategory
	if err := tx.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}
