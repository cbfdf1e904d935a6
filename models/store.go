package models

import (
	"context"
	"errors"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Store is the aggregate root of the catalog. It holds no child collections;
// menus and reviews reference store_id and are loaded on demand (see
// LoadStoreAggregate).
type Store struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OwnerId       int             `gorm:"index;not null" json:"owner_id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Address       string          `gorm:"size:255;not null" json:"address"`
	Phone         string          `gorm:"size:30" json:"phone"`
	MinOrderPrice decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"min_order_price"`
	CategoryId    int             `gorm:"index;not null;default:0" json:"category_id"`
	RegionId      int             `gorm:"index;not null;default:0" json:"region_id"`
	Rating        decimal.Decimal `gorm:"type:decimal(4,2);default:0" json:"rating"`
	ReviewCount   int             `gorm:"not null;default:0" json:"review_count"`
	SyncStatus    SyncStatus      `gorm:"type:varchar(20);index;not null" json:"sync_status"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	OwnerId       int             `json:"owner_id" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Address       string          `json:"address" binding:"required"`
	Phone         string          `json:"phone"`
	MinOrderPrice decimal.Decimal `json:"min_order_price"`
	CategoryName  string          `json:"category_name" binding:"required"`
	Province      string          `json:"province" binding:"required"`
	City          string          `json:"city" binding:"required"`
	District      string          `json:"district" binding:"required"`
}

func (input *NewStore) validate() error {
	if input.Name == "" {
		return errors.New("store name is required")
	}
	if input.MinOrderPrice.IsNegative() {
		return errors.New("min order price cannot be negative")
	}
	return nil
}

// CreateStore persists a new store at CREATED_PENDING. Category and region
// are find-or-create lookups by natural key.
func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	category, err := FindOrCreateStoreCategory(ctx, input.CategoryName)
	if err != nil {
		return nil, err
	}
	region, err := FindOrCreateRegion(ctx, input.Province, input.City, input.District)
	if err != nil {
		return nil, err
	}

	store := Store{
		OwnerId:       input.OwnerId,
		Name:          input.Name,
		Address:       input.Address,
		Phone:         input.Phone,
		MinOrderPrice: input.MinOrderPrice,
		CategoryId:    category.ID,
		RegionId:      region.ID,
		Rating:        decimal.Zero,
		SyncStatus:    SyncStatusCreatedPending,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

type UpdateStoreInput struct {
	Name          *string          `json:"name"`
	Address       *string          `json:"address"`
	Phone         *string          `json:"phone"`
	MinOrderPrice *decimal.Decimal `json:"min_order_price"`
}

// UpdateStore mutates scalar fields and flips the row to UPDATED_PENDING.
func UpdateStore(ctx context.Context, id int, input *UpdateStoreInput) (*Store, error) {
	store, err := FetchStore(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		store.Name = *input.Name
	}
	if input.Address != nil {
		store.Address = *input.Address
	}
	if input.Phone != nil {
		store.Phone = *input.Phone
	}
	if input.MinOrderPrice != nil {
		if input.MinOrderPrice.IsNegative() {
			return nil, errors.New("min order price cannot be negative")
		}
		store.MinOrderPrice = *input.MinOrderPrice
	}
	store.SyncStatus = store.SyncStatus.MarkUpdated()

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Store{}).Where("id = ?", store.ID).Updates(map[string]interface{}{
		"name":            store.Name,
		"address":         store.Address,
		"phone":           store.Phone,
		"min_order_price": store.MinOrderPrice,
		"sync_status":     store.SyncStatus,
	}).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// DeleteStore soft-deletes the store and everything it owns in one
// transaction. Physical removal is the purge scheduler's job.
func DeleteStore(ctx context.Context, id int) (*Store, error) {
	store, err := FetchStore(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := map[string]interface{}{"is_deleted": true, "deleted_at": &now}

		if err := tx.Model(&Store{}).Where("id = ?", id).Updates(deleted).Error; err != nil {
			return err
		}
		if err := tx.Model(&Menu{}).Where("store_id = ? AND is_deleted = 0", id).Updates(deleted).Error; err != nil {
			return err
		}
		if err := tx.Model(&MenuOption{}).
			Where("menu_id IN (?)", tx.Model(&Menu{}).Select("id").Where("store_id = ?", id)).
			Where("is_deleted = 0").
			Updates(deleted).Error; err != nil {
			return err
		}
		if err := tx.Model(&Review{}).Where("store_id = ? AND is_deleted = 0", id).Updates(deleted).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	store.MarkDeleted(now)
	return store, nil
}

// FetchStore loads a live (non-deleted) store row.
func FetchStore(ctx context.Context, id int) (*Store, error) {
	var store Store
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("is_deleted = 0").First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &store, nil
}
