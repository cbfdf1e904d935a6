package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/goorm-engineers4/delivery-backend/replica"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StoreSyncWorker reconciles the store aggregate family with the read
// replica: soft-deleted stores are removed, newly created stores get a
// full denormalized document, and updated stores get their scalar
// fields re-pushed.
type StoreSyncWorker struct {
	DB           *gorm.DB
	Replica      replica.Store
	Logger       *logrus.Logger
	BatchSize    int
	PollInterval time.Duration
}

func NewStoreSyncWorker(db *gorm.DB, rep replica.Store, logger *logrus.Logger) *StoreSyncWorker {
	return &StoreSyncWorker{
		DB:           db,
		Replica:      rep,
		Logger:       logger,
		BatchSize:    config.IntFromEnv("SYNC_BATCH_SIZE", 50),
		PollInterval: time.Duration(config.IntFromEnv("SYNC_POLL_SECONDS", 10)) * time.Second,
	}
}

func (w *StoreSyncWorker) Family() string { return "store" }

func (w *StoreSyncWorker) Run(ctx context.Context) {
	RunPeriodic(ctx, w, w.PollInterval, w.Logger)
}

// RunOnce performs one reconciliation tick. Deletions are propagated
// before creations so a row that was created and deleted between ticks
// never leaves a ghost document behind.
func (w *StoreSyncWorker) RunOnce(ctx context.Context) {
	runPhases(ctx, w.Logger, w.Family(), []SyncPhase{
		{Name: "delete-sync", Run: w.deleteSync},
		{Name: "create-sync", Run: w.createSync},
		{Name: "update-sync", Run: w.updateSync},
	})
}

func (w *StoreSyncWorker) deleteSync(ctx context.Context) error {
	var ids []int
	err := w.DB.WithContext(ctx).Model(&models.Store{}).
		Where("is_deleted = ?", true).
		Order("id").Limit(w.BatchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("list deleted stores: %w", err)
	}
	for _, id := range ids {
		if err := w.Replica.DeleteStoreDocument(ctx, id); err != nil {
			config.LogError(w.Logger, "workflow", "StoreSyncWorker.deleteSync", "remove store document", map[string]interface{}{"storeId": id}, err)
		}
	}
	return nil
}

// createSync pushes the batch of newly created stores as one bulk upsert
// to bound replica write amplification. Markers advance only after the
// bulk write succeeded; on failure nothing is marked and the whole batch
// is retried next tick (the upserts are idempotent).
func (w *StoreSyncWorker) createSync(ctx context.Context) error {
	var stores []*models.Store
	err := w.DB.WithContext(ctx).
		Where("sync_status = ? AND is_deleted = ?", models.SyncStatusCreatedPending, false).
		Order("id").Limit(w.BatchSize).
		Find(&stores).Error
	if err != nil {
		return fmt.Errorf("list created stores: %w", err)
	}
	if len(stores) == 0 {
		return nil
	}

	docs := make([]replica.StoreDocument, 0, len(stores))
	pushed := make([]int, 0, len(stores))
	for _, store := range stores {
		agg, err := models.LoadStoreAggregate(ctx, w.DB, store.ID)
		if err != nil {
			config.LogError(w.Logger, "workflow", "StoreSyncWorker.createSync", "load store aggregate", map[string]interface{}{"storeId": store.ID}, err)
			continue
		}
		docs = append(docs, replica.BuildStoreDocument(agg))
		pushed = append(pushed, store.ID)
	}
	if len(docs) == 0 {
		return nil
	}

	if err := w.Replica.UpsertStoreDocuments(ctx, docs); err != nil {
		return fmt.Errorf("bulk upsert store documents: %w", err)
	}

	err = w.DB.WithContext(ctx).Model(&models.Store{}).
		Where("id IN ? AND sync_status = ?", pushed, models.SyncStatusCreatedPending).
		Update("sync_status", models.SyncStatusCreatedSynced).Error
	if err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}
	return nil
}

// updateSync re-pushes every live updated store one at a time and
// advances its marker only after the replica write succeeded. A failed
// push leaves the row pending so the next tick retries it.
func (w *StoreSyncWorker) updateSync(ctx context.Context) error {
	var stores []*models.Store
	err := w.DB.WithContext(ctx).
		Where("sync_status = ? AND is_deleted = ?", models.SyncStatusUpdatedPending, false).
		Order("id").Limit(w.BatchSize).
		Find(&stores).Error
	if err != nil {
		return fmt.Errorf("list updated stores: %w", err)
	}

	for _, store := range stores {
		if err := w.pushStore(ctx, store.ID); err != nil {
			config.LogError(w.Logger, "workflow", "StoreSyncWorker.updateSync", "push store document", map[string]interface{}{"storeId": store.ID}, err)
			continue
		}

		next, terr := store.SyncStatus.MarkUpdatedSynced()
		if terr != nil {
			// the row changed state under us; leave it for the next tick
			config.LogError(w.Logger, "workflow", "StoreSyncWorker.updateSync", "advance sync state", map[string]interface{}{"storeId": store.ID}, terr)
			continue
		}
		// guard on the observed state so a concurrent mutation that
		// flipped the row back to UPDATED_PENDING is not overwritten
		err = w.DB.WithContext(ctx).Model(&models.Store{}).
			Where("id = ? AND sync_status = ?", store.ID, models.SyncStatusUpdatedPending).
			Update("sync_status", next).Error
		if err != nil {
			config.LogError(w.Logger, "workflow", "StoreSyncWorker.updateSync", "persist sync state", map[string]interface{}{"storeId": store.ID}, err)
		}
	}
	return nil
}

// pushStore rebuilds and upserts the full document for one store. Both
// the create and update paths go through a full rebuild: the replica
// write is a ReplaceOne upsert, so an update that races ahead of the
// store's initial push still materializes a complete document.
func (w *StoreSyncWorker) pushStore(ctx context.Context, storeId int) error {
	agg, err := models.LoadStoreAggregate(ctx, w.DB, storeId)
	if err != nil {
		return err
	}
	return w.Replica.UpsertStoreDocument(ctx, replica.BuildStoreDocument(agg))
}
