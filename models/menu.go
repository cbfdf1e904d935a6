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

type Menu struct {
	ID          int             `gorm:"primary_key" json:"id"`
	StoreId     int             `gorm:"index;not null" json:"store_id"`
	Name        string          `gorm:"size:100;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"price"`
	SyncStatus  SyncStatus      `gorm:"type:varchar(20);index;not null" json:"sync_status"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type MenuOption struct {
	ID         int             `gorm:"primary_key" json:"id"`
	MenuId     int             `gorm:"index;not null" json:"menu_id"`
	Name       string          `gorm:"size:100;not null" json:"name"`
	ExtraPrice decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"extra_price"`
	SyncStatus SyncStatus      `gorm:"type:varchar(20);index;not null" json:"sync_status"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewMenu struct {
	StoreId      int             `json:"store_id" binding:"required"`
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	InitialStock int64           `json:"initial_stock"`
	Options      []NewMenuOption `json:"options"`
}

type NewMenuOption struct {
	Name       string          `json:"name" binding:"required"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
}

func (input *NewMenu) validate() error {
	if input.Name == "" {
		return errors.New("menu name is required")
	}
	if input.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	if input.InitialStock < 0 {
		return errors.New("initial stock cannot be negative")
	}
	for _, opt := range input.Options {
		if opt.Name == "" {
			return errors.New("option name is required")
		}
	}
	return nil
}

// CreateMenu persists a menu, its options and its stock ledger in one
// transaction, all at CREATED_PENDING. The ledger follows the menu's
// lifecycle and is never deleted independently.
func CreateMenu(ctx context.Context, input *NewMenu) (*Menu, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if _, err := FetchStore(ctx, input.StoreId); err != nil {
		return nil, errors.New("store not found")
	}

	menu := Menu{
		StoreId:     input.StoreId,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		SyncStatus:  SyncStatusCreatedPending,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&menu).Error; err != nil {
			return err
		}
		for _, opt := range input.Options {
			option := MenuOption{
				MenuId:     menu.ID,
				Name:       opt.Name,
				ExtraPrice: opt.ExtraPrice,
				SyncStatus: SyncStatusCreatedPending,
			}
			if err := tx.Create(&option).Error; err != nil {
				return err
			}
		}
		ledger := StockLedger{
			MenuId:     menu.ID,
			Quantity:   input.InitialStock,
			Version:    0,
			SyncStatus: SyncStatusCreatedPending,
		}
		return tx.Create(&ledger).Error
	})
	if err != nil {
		return nil, err
	}
	return &menu, nil
}

type UpdateMenuInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

func UpdateMenu(ctx context.Context, id int, input *UpdateMenuInput) (*Menu, error) {
	menu, err := FetchMenu(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		menu.Name = *input.Name
	}
	if input.Description != nil {
		menu.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, errors.New("price cannot be negative")
		}
		menu.Price = *input.Price
	}
	menu.SyncStatus = menu.SyncStatus.MarkUpdated()

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Menu{}).Where("id = ?", menu.ID).Updates(map[string]interface{}{
		"name":        menu.Name,
		"description": menu.Description,
		"price":       menu.Price,
		"sync_status": menu.SyncStatus,
	}).Error; err != nil {
		return nil, err
	}
	return menu, nil
}

// DeleteMenu soft-deletes the menu and its options. The ledger row stays
// until purge removes it with the menu.
func DeleteMenu(ctx context.Context, id int) (*Menu, error) {
	menu, err := FetchMenu(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted := map[string]interface{}{"is_deleted": true, "deleted_at": &now}
		if err := tx.Model(&Menu{}).Where("id = ?", id).Updates(deleted).Error; err != nil {
			return err
		}
		return tx.Model(&MenuOption{}).Where("menu_id = ? AND is_deleted = 0", id).Updates(deleted).Error
	})
	if err != nil {
		return nil, err
	}

	menu.MarkDeleted(now)
	return menu, nil
}

func AddMenuOption(ctx context.Context, menuId int, input *NewMenuOption) (*MenuOption, error) {
	if input.Name == "" {
		return nil, errors.New("option name is required")
	}
	if _, err := FetchMenu(ctx, menuId); err != nil {
		return nil, err
	}

	option := MenuOption{
		MenuId:     menuId,
		Name:       input.Name,
		ExtraPrice: input.ExtraPrice,
		SyncStatus: SyncStatusCreatedPending,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&option).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func UpdateMenuOption(ctx context.Context, id int, input *NewMenuOption) (*MenuOption, error) {
	var option MenuOption
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("is_deleted = 0").First(&option, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	option.Name = input.Name
	option.ExtraPrice = input.ExtraPrice
	option.SyncStatus = option.SyncStatus.MarkUpdated()

	if err := db.WithContext(ctx).Model(&MenuOption{}).Where("id = ?", option.ID).Updates(map[string]interface{}{
		"name":        option.Name,
		"extra_price": option.ExtraPrice,
		"sync_status": option.SyncStatus,
	}).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func DeleteMenuOption(ctx context.Context, id int) error {
	now := time.Now().UTC()
	db := config.GetDB()
	return db.WithContext(ctx).Model(&MenuOption{}).
		Where("id = ? AND is_deleted = 0", id).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": &now}).Error
}

// FetchMenu loads a live (non-deleted) menu row.
func FetchMenu(ctx context.Context, id int) (*Menu, error) {
	var menu Menu
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("is_deleted = 0").First(&menu, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &menu, nil
}
