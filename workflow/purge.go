package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PurgeWorker hard-deletes soft-deleted rows once they have been deleted
// longer than the retention window. The retention window must stay longer
// than the sync poll interval: delete-sync needs at least one tick to see a
// soft-deleted row before purge erases the marker, so PURGE_RETENTION_HOURS
// and SYNC_POLL_SECONDS are tuned together.
type PurgeWorker struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Retention time.Duration
	Interval  time.Duration
}

func NewPurgeWorker(db *gorm.DB, logger *logrus.Logger) *PurgeWorker {
	return &PurgeWorker{
		DB:        db,
		Logger:    logger,
		Retention: time.Duration(config.IntFromEnv("PURGE_RETENTION_HOURS", 24)) * time.Hour,
		Interval:  time.Duration(config.IntFromEnv("PURGE_INTERVAL_HOURS", 24)) * time.Hour,
	}
}

func (w *PurgeWorker) Family() string { return "purge" }

func (w *PurgeWorker) Run(ctx context.Context) {
	RunPeriodic(ctx, w, w.Interval, w.Logger)
}

// RunOnce erases expired rows child-first so no pass can leave an option
// without its menu or a ledger without its menu. Each step is independent;
// a failing step is retried on the next run.
func (w *PurgeWorker) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.Retention)
	runPhases(ctx, w.Logger, w.Family(), []SyncPhase{
		{Name: "options", Run: func(ctx context.Context) error { return w.purgeOptions(ctx, cutoff) }},
		{Name: "ledgers", Run: func(ctx context.Context) error { return w.purgeLedgers(ctx, cutoff) }},
		{Name: "reviews", Run: func(ctx context.Context) error { return w.purgeReviews(ctx, cutoff) }},
		{Name: "menus", Run: func(ctx context.Context) error { return w.purgeMenus(ctx, cutoff) }},
		{Name: "stores", Run: func(ctx context.Context) error { return w.purgeStores(ctx, cutoff) }},
	})
}

func (w *PurgeWorker) purgeOptions(ctx context.Context, cutoff time.Time) error {
	result := w.DB.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.MenuOption{})
	if result.Error != nil {
		return fmt.Errorf("purge options: %w", result.Error)
	}
	w.logPurged("menu_options", result.RowsAffected)
	return nil
}

// purgeLedgers removes ledgers of expired menus. The ledger itself carries
// no delete marker; it lives and dies with its menu.
func (w *PurgeWorker) purgeLedgers(ctx context.Context, cutoff time.Time) error {
	var menuIds []int
	err := w.DB.WithContext(ctx).Model(&models.Menu{}).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Pluck("id", &menuIds).Error
	if err != nil {
		return fmt.Errorf("list expired menus: %w", err)
	}
	if len(menuIds) == 0 {
		return nil
	}

	result := w.DB.WithContext(ctx).
		Where("menu_id IN ?", menuIds).
		Delete(&models.StockLedger{})
	if result.Error != nil {
		return fmt.Errorf("purge ledgers: %w", result.Error)
	}
	for _, menuId := range menuIds {
		models.EvictStockFromCache(menuId)
	}
	w.logPurged("stock_ledgers", result.RowsAffected)
	return nil
}

func (w *PurgeWorker) purgeReviews(ctx context.Context, cutoff time.Time) error {
	result := w.DB.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.Review{})
	if result.Error != nil {
		return fmt.Errorf("purge reviews: %w", result.Error)
	}
	w.logPurged("reviews", result.RowsAffected)
	return nil
}

func (w *PurgeWorker) purgeMenus(ctx context.Context, cutoff time.Time) error {
	result := w.DB.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.Menu{})
	if result.Error != nil {
		return fmt.Errorf("purge menus: %w", result.Error)
	}
	w.logPurged("menus", result.RowsAffected)
	return nil
}

func (w *PurgeWorker) purgeStores(ctx context.Context, cutoff time.Time) error {
	result := w.DB.WithContext(ctx).
		Where("is_deleted = ? AND deleted_at < ?", true, cutoff).
		Delete(&models.Store{})
	if result.Error != nil {
		return fmt.Errorf("purge stores: %w", result.Error)
	}
	w.logPurged("stores", result.RowsAffected)
	return nil
}

func (w *PurgeWorker) logPurged(table string, rows int64) {
	if rows == 0 {
		return
	}
	w.Logger.WithFields(logrus.Fields{"table": table, "rows": rows}).Info("purged expired rows")
}
