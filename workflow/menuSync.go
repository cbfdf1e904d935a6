package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/goorm-engineers4/delivery-backend/replica"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MenuSyncWorker reconciles menus, their options and their stock ledgers.
// Options and the stock snapshot are embedded in the parent menu's
// subdocument, so any pending child resolves to a re-push of the whole
// menu subdocument; pure stock movements take a cheaper positional update.
type MenuSyncWorker struct {
	DB           *gorm.DB
	Replica      replica.Store
	Logger       *logrus.Logger
	BatchSize    int
	PollInterval time.Duration
}

func NewMenuSyncWorker(db *gorm.DB, rep replica.Store, logger *logrus.Logger) *MenuSyncWorker {
	return &MenuSyncWorker{
		DB:           db,
		Replica:      rep,
		Logger:       logger,
		BatchSize:    config.IntFromEnv("SYNC_BATCH_SIZE", 50),
		PollInterval: time.Duration(config.IntFromEnv("SYNC_POLL_SECONDS", 10)) * time.Second,
	}
}

func (w *MenuSyncWorker) Family() string { return "menu" }

func (w *MenuSyncWorker) Run(ctx context.Context) {
	RunPeriodic(ctx, w, w.PollInterval, w.Logger)
}

func (w *MenuSyncWorker) RunOnce(ctx context.Context) {
	runPhases(ctx, w.Logger, w.Family(), []SyncPhase{
		{Name: "delete-sync", Run: w.deleteSync},
		{Name: "create-sync", Run: w.createSync},
		{Name: "update-sync", Run: w.updateSync},
	})
}

// deleteSync pulls soft-deleted menus out of their store documents. A
// deleted option of a still-live menu is handled by re-pushing that menu,
// which rebuilds the options array without the dead row.
func (w *MenuSyncWorker) deleteSync(ctx context.Context) error {
	var menus []*models.Menu
	err := w.DB.WithContext(ctx).
		Where("is_deleted = ?", true).
		Order("id").Limit(w.BatchSize).
		Find(&menus).Error
	if err != nil {
		return fmt.Errorf("list deleted menus: %w", err)
	}
	for _, menu := range menus {
		if err := w.Replica.RemoveStoreMenu(ctx, menu.StoreId, menu.ID); err != nil {
			config.LogError(w.Logger, "workflow", "MenuSyncWorker.deleteSync", "remove menu subdocument", map[string]interface{}{"storeId": menu.StoreId, "menuId": menu.ID}, err)
		}
	}

	var orphanMenuIds []int
	err = w.DB.WithContext(ctx).Model(&models.MenuOption{}).
		Joins("JOIN menus ON menus.id = menu_options.menu_id AND menus.is_deleted = 0").
		Where("menu_options.is_deleted = ?", true).
		Distinct().Order("menu_options.menu_id").Limit(w.BatchSize).
		Pluck("menu_options.menu_id", &orphanMenuIds).Error
	if err != nil {
		return fmt.Errorf("list menus with deleted options: %w", err)
	}
	for _, menuId := range orphanMenuIds {
		if err := w.pushMenu(ctx, menuId); err != nil {
			config.LogError(w.Logger, "workflow", "MenuSyncWorker.deleteSync", "re-push menu after option delete", map[string]interface{}{"menuId": menuId}, err)
		}
	}
	return nil
}

func (w *MenuSyncWorker) createSync(ctx context.Context) error {
	if err := w.pushPendingMenus(ctx, models.SyncStatusCreatedPending); err != nil {
		return err
	}
	return w.pushPendingLedgers(ctx, models.SyncStatusCreatedPending)
}

func (w *MenuSyncWorker) updateSync(ctx context.Context) error {
	if err := w.pushPendingMenus(ctx, models.SyncStatusUpdatedPending); err != nil {
		return err
	}
	return w.pushPendingLedgers(ctx, models.SyncStatusUpdatedPending)
}

// pendingMenuIds lists live menus that need a push in the given state:
// either the menu row itself is pending or one of its live options is.
func (w *MenuSyncWorker) pendingMenuIds(ctx context.Context, pending models.SyncStatus) ([]int, error) {
	var ids []int
	err := w.DB.WithContext(ctx).Model(&models.Menu{}).
		Joins("LEFT JOIN menu_options ON menu_options.menu_id = menus.id AND menu_options.is_deleted = 0").
		Where("menus.is_deleted = 0").
		Where("menus.sync_status = ? OR menu_options.sync_status = ?", pending, pending).
		Distinct().Order("menus.id").Limit(w.BatchSize).
		Pluck("menus.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list %s menus: %w", pending, err)
	}
	return ids, nil
}

func (w *MenuSyncWorker) pushPendingMenus(ctx context.Context, pending models.SyncStatus) error {
	ids, err := w.pendingMenuIds(ctx, pending)
	if err != nil {
		return err
	}
	for _, menuId := range ids {
		if err := w.pushMenu(ctx, menuId); err != nil {
			config.LogError(w.Logger, "workflow", "MenuSyncWorker.pushPendingMenus", "push menu subdocument", map[string]interface{}{"menuId": menuId, "state": pending}, err)
			continue
		}
		w.markMenuSynced(ctx, menuId, pending)
	}
	return nil
}

// pushMenu rebuilds one menu's subdocument (options and stock snapshot
// included) and replaces it inside the parent store document.
func (w *MenuSyncWorker) pushMenu(ctx context.Context, menuId int) error {
	var menu models.Menu
	err := w.DB.WithContext(ctx).Where("is_deleted = 0").First(&menu, menuId).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// deleted between listing and push; delete-sync owns it now
			return nil
		}
		return err
	}

	var options []*models.MenuOption
	err = w.DB.WithContext(ctx).
		Where("menu_id = ? AND is_deleted = 0", menuId).
		Order("id").Find(&options).Error
	if err != nil {
		return err
	}

	var ledger models.StockLedger
	ledgerPtr := &ledger
	err = w.DB.WithContext(ctx).Where("menu_id = ?", menuId).First(&ledger).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		ledgerPtr = nil
	}

	doc := replica.BuildMenuDocument(&menu, options, ledgerPtr)
	return w.Replica.UpsertStoreMenu(ctx, menu.StoreId, doc)
}

// markMenuSynced advances the pending markers the push just satisfied. Each
// update is guarded on the observed pending state so a concurrent mutation
// that re-flagged a row keeps its marker.
func (w *MenuSyncWorker) markMenuSynced(ctx context.Context, menuId int, pending models.SyncStatus) {
	synced, err := pending.Synced()
	if err != nil {
		config.LogError(w.Logger, "workflow", "MenuSyncWorker.markMenuSynced", "advance sync state", map[string]interface{}{"menuId": menuId}, err)
		return
	}

	err = w.DB.WithContext(ctx).Model(&models.Menu{}).
		Where("id = ? AND sync_status = ?", menuId, pending).
		Update("sync_status", synced).Error
	if err != nil {
		config.LogError(w.Logger, "workflow", "MenuSyncWorker.markMenuSynced", "persist menu state", map[string]interface{}{"menuId": menuId}, err)
	}

	err = w.DB.WithContext(ctx).Model(&models.MenuOption{}).
		Where("menu_id = ? AND sync_status = ? AND is_deleted = 0", menuId, pending).
		Update("sync_status", synced).Error
	if err != nil {
		config.LogError(w.Logger, "workflow", "MenuSyncWorker.markMenuSynced", "persist option state", map[string]interface{}{"menuId": menuId}, err)
	}
}

// pushPendingLedgers reconciles stock snapshots. Freshly created ledgers
// were already embedded by the menu push, so CREATED_PENDING only needs its
// marker advanced; UPDATED_PENDING gets a positional stock update. The
// marker write is additionally guarded on the version we pushed, so a stock
// movement that lands mid-push stays pending.
func (w *MenuSyncWorker) pushPendingLedgers(ctx context.Context, pending models.SyncStatus) error {
	type pendingLedger struct {
		models.StockLedger
		StoreId int
	}

	query := w.DB.WithContext(ctx).Model(&models.StockLedger{}).
		Select("stock_ledgers.*, menus.store_id AS store_id").
		Joins("JOIN menus ON menus.id = stock_ledgers.menu_id AND menus.is_deleted = 0").
		Where("stock_ledgers.sync_status = ?", pending)
	if pending == models.SyncStatusCreatedPending {
		// the snapshot rides inside the menu subdocument; until the menu
		// itself has been pushed there is nothing to advance past
		query = query.Where("menus.sync_status <> ?", models.SyncStatusCreatedPending)
	}

	var ledgers []pendingLedger
	err := query.Order("stock_ledgers.id").Limit(w.BatchSize).Scan(&ledgers).Error
	if err != nil {
		return fmt.Errorf("list %s ledgers: %w", pending, err)
	}

	synced, err := pending.Synced()
	if err != nil {
		return err
	}

	for _, entry := range ledgers {
		if pending == models.SyncStatusUpdatedPending {
			snapshot := replica.StockSnapshot{Quantity: entry.Quantity, Version: entry.Version}
			if err := w.Replica.UpdateMenuStock(ctx, entry.StoreId, entry.MenuId, snapshot); err != nil {
				config.LogError(w.Logger, "workflow", "MenuSyncWorker.pushPendingLedgers", "push stock snapshot", map[string]interface{}{"menuId": entry.MenuId}, err)
				continue
			}
		}

		err = w.DB.WithContext(ctx).Model(&models.StockLedger{}).
			Where("id = ? AND sync_status = ? AND version = ?", entry.ID, pending, entry.Version).
			Update("sync_status", synced).Error
		if err != nil {
			config.LogError(w.Logger, "workflow", "MenuSyncWorker.pushPendingLedgers", "persist ledger state", map[string]interface{}{"menuId": entry.MenuId}, err)
		}
	}
	return nil
}
