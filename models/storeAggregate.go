package models

import (
	"context"

	"gorm.io/gorm"
)

// StoreAggregate carries one store row with every child the document builder
// needs. Children reference the root by id only; there are no back-pointers.
type StoreAggregate struct {
	Store         *Store
	Category      *StoreCategory
	Region        *Region
	Menus         []*Menu
	OptionsByMenu map[int][]*MenuOption
	LedgerByMenu  map[int]*StockLedger
	TopReviews    []*Review
}

// TopReviewLimit bounds the embedded review list in a store document.
const TopReviewLimit = 3

// LoadStoreAggregate assembles the full aggregate for one store. Missing
// category/region rows load as nil; the builder tolerates that.
func LoadStoreAggregate(ctx context.Context, tx *gorm.DB, storeId int) (*StoreAggregate, error) {
	var store Store
	if err := tx.WithContext(ctx).First(&store, storeId).Error; err != nil {
		return nil, err
	}

	agg := &StoreAggregate{
		Store:         &store,
		OptionsByMenu: map[int][]*MenuOption{},
		LedgerByMenu:  map[int]*StockLedger{},
	}

	if store.CategoryId > 0 {
		if category, err := GetStoreCategory(ctx, tx, store.CategoryId); err == nil {
			agg.Category = category
		}
	}
	if store.RegionId > 0 {
		if region, err := GetRegion(ctx, tx, store.RegionId); err == nil {
			agg.Region = region
		}
	}

	if err := tx.WithContext(ctx).
		Where("store_id = ? AND is_deleted = 0", storeId).
		Order("id ASC").
		Find(&agg.Menus).Error; err != nil {
		return nil, err
	}

	menuIds := make([]int, 0, len(agg.Menus))
	for _, menu := range agg.Menus {
		menuIds = append(menuIds, menu.ID)
	}
	if len(menuIds) > 0 {
		var options []*MenuOption
		if err := tx.WithContext(ctx).
			Where("menu_id IN ? AND is_deleted = 0", menuIds).
			Order("id ASC").
			Find(&options).Error; err != nil {
			return nil, err
		}
		for _, option := range options {
			agg.OptionsByMenu[option.MenuId] = append(agg.OptionsByMenu[option.MenuId], option)
		}

		var ledgers []*StockLedger
		if err := tx.WithContext(ctx).
			Where("menu_id IN ?", menuIds).
			Find(&ledgers).Error; err != nil {
			return nil, err
		}
		for _, ledger := range ledgers {
			agg.LedgerByMenu[ledger.MenuId] = ledger
		}
	}

	topReviews, err := TopReviews(ctx, tx, storeId, TopReviewLimit)
	if err != nil {
		return nil, err
	}
	agg.TopReviews = topReviews

	return agg, nil
}
