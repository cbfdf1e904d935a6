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

// ReviewSyncWorker reconciles the standalone review documents and, as its
// final phase, refreshes the derived fields embedded in store documents
// (top reviews, rating, review count). The derived phase runs last so it
// always observes the outcome of this tick's create/update/delete pushes.
type ReviewSyncWorker struct {
	DB           *gorm.DB
	Replica      replica.Store
	Logger       *logrus.Logger
	BatchSize    int
	PollInterval time.Duration
}

func NewReviewSyncWorker(db *gorm.DB, rep replica.Store, logger *logrus.Logger) *ReviewSyncWorker {
	return &ReviewSyncWorker{
		DB:           db,
		Replica:      rep,
		Logger:       logger,
		BatchSize:    config.IntFromEnv("SYNC_BATCH_SIZE", 50),
		PollInterval: time.Duration(config.IntFromEnv("SYNC_POLL_SECONDS", 10)) * time.Second,
	}
}

func (w *ReviewSyncWorker) Family() string { return "review" }

func (w *ReviewSyncWorker) Run(ctx context.Context) {
	RunPeriodic(ctx, w, w.PollInterval, w.Logger)
}

func (w *ReviewSyncWorker) RunOnce(ctx context.Context) {
	runPhases(ctx, w.Logger, w.Family(), []SyncPhase{
		{Name: "delete-sync", Run: w.deleteSync},
		{Name: "create-sync", Run: w.createSync},
		{Name: "update-sync", Run: w.updateSync},
		{Name: "derived-refresh", Run: w.derivedRefresh},
	})
}

func (w *ReviewSyncWorker) deleteSync(ctx context.Context) error {
	var ids []int
	err := w.DB.WithContext(ctx).Model(&models.Review{}).
		Where("is_deleted = ?", true).
		Order("id").Limit(w.BatchSize).
		Pluck("id", &ids).Error
	if err != nil {
		return fmt.Errorf("list deleted reviews: %w", err)
	}
	for _, id := range ids {
		if err := w.Replica.DeleteReviewDocument(ctx, id); err != nil {
			config.LogError(w.Logger, "workflow", "ReviewSyncWorker.deleteSync", "remove review document", map[string]interface{}{"reviewId": id}, err)
		}
	}
	return nil
}

func (w *ReviewSyncWorker) createSync(ctx context.Context) error {
	return w.pushPending(ctx, models.SyncStatusCreatedPending)
}

func (w *ReviewSyncWorker) updateSync(ctx context.Context) error {
	return w.pushPending(ctx, models.SyncStatusUpdatedPending)
}

func (w *ReviewSyncWorker) pushPending(ctx context.Context, pending models.SyncStatus) error {
	var reviews []*models.Review
	err := w.DB.WithContext(ctx).
		Where("sync_status = ? AND is_deleted = ?", pending, false).
		Order("id").Limit(w.BatchSize).
		Find(&reviews).Error
	if err != nil {
		return fmt.Errorf("list %s reviews: %w", pending, err)
	}

	synced, err := pending.Synced()
	if err != nil {
		return err
	}

	for _, review := range reviews {
		if err := w.Replica.UpsertReviewDocument(ctx, replica.BuildReviewDocument(review)); err != nil {
			config.LogError(w.Logger, "workflow", "ReviewSyncWorker.pushPending", "push review document", map[string]interface{}{"reviewId": review.ID, "state": pending}, err)
			continue
		}
		err = w.DB.WithContext(ctx).Model(&models.Review{}).
			Where("id = ? AND sync_status = ?", review.ID, pending).
			Update("sync_status", synced).Error
		if err != nil {
			config.LogError(w.Logger, "workflow", "ReviewSyncWorker.pushPending", "persist sync state", map[string]interface{}{"reviewId": review.ID}, err)
		}
	}
	return nil
}

// derivedRefresh overwrites every live store document's top-review list,
// rating and review count from the relational side. It walks the store table
// in id order with a cursor so one bad page cannot stall the rest.
func (w *ReviewSyncWorker) derivedRefresh(ctx context.Context) error {
	lastId := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var stores []*models.Store
		err := w.DB.WithContext(ctx).
			Where("id > ? AND is_deleted = ?", lastId, false).
			Order("id").Limit(w.BatchSize).
			Find(&stores).Error
		if err != nil {
			return fmt.Errorf("page stores after id %d: %w", lastId, err)
		}
		if len(stores) == 0 {
			return nil
		}

		for _, store := range stores {
			lastId = store.ID
			if err := w.refreshStore(ctx, store); err != nil {
				config.LogError(w.Logger, "workflow", "ReviewSyncWorker.derivedRefresh", "refresh derived fields", map[string]interface{}{"storeId": store.ID}, err)
			}
		}
	}
}

func (w *ReviewSyncWorker) refreshStore(ctx context.Context, store *models.Store) error {
	reviews, err := models.TopReviews(ctx, w.DB, store.ID, models.TopReviewLimit)
	if err != nil {
		return err
	}

	docs := make([]replica.ReviewDocument, 0, len(reviews))
	for _, review := range reviews {
		docs = append(docs, replica.BuildReviewDocument(review))
	}
	return w.Replica.ReplaceTopReviews(ctx, store.ID, docs, store.Rating.InexactFloat64(), store.ReviewCount)
}
