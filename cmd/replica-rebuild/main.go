package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/goorm-engineers4/delivery-backend/replica"
	"gorm.io/gorm"
)

// replica-rebuild regenerates every live store and review document from the
// relational side and resets the pending markers. Use it after a replica
// wipe or a document schema change; it is safe to run while the service is
// up because every write is a whole-document upsert.
func main() {
	batchSize := flag.Int("batch-size", 100, "stores per bulk write")
	dryRun := flag.Bool("dry-run", false, "count work without writing")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	config.ConnectReplicaWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	rep := replica.NewMongoStore(config.GetReplicaDB())
	ctx := context.Background()

	storeTotal := 0
	lastId := 0
	for {
		var ids []int
		err := db.WithContext(ctx).Model(&models.Store{}).
			Where("id > ? AND is_deleted = ?", lastId, false).
			Order("id").Limit(*batchSize).
			Pluck("id", &ids).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "list stores after id %d: %v\n", lastId, err)
			os.Exit(1)
		}
		if len(ids) == 0 {
			break
		}

		docs := make([]replica.StoreDocument, 0, len(ids))
		for _, id := range ids {
			lastId = id
			agg, err := models.LoadStoreAggregate(ctx, db, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "load store %d: %v\n", id, err)
				os.Exit(1)
			}
			docs = append(docs, replica.BuildStoreDocument(agg))
		}
		if !*dryRun {
			if err := rep.UpsertStoreDocuments(ctx, docs); err != nil {
				fmt.Fprintf(os.Stderr, "write store documents: %v\n", err)
				os.Exit(1)
			}
		}
		storeTotal += len(docs)
	}

	reviewTotal := 0
	lastId = 0
	for {
		var reviews []*models.Review
		err := db.WithContext(ctx).
			Where("id > ? AND is_deleted = ?", lastId, false).
			Order("id").Limit(*batchSize).
			Find(&reviews).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "list reviews after id %d: %v\n", lastId, err)
			os.Exit(1)
		}
		if len(reviews) == 0 {
			break
		}
		for _, review := range reviews {
			lastId = review.ID
			if *dryRun {
				continue
			}
			if err := rep.UpsertReviewDocument(ctx, replica.BuildReviewDocument(review)); err != nil {
				fmt.Fprintf(os.Stderr, "write review %d: %v\n", review.ID, err)
				os.Exit(1)
			}
		}
		reviewTotal += len(reviews)
	}

	if !*dryRun {
		if err := resetPendingMarkers(ctx, db); err != nil {
			fmt.Fprintf(os.Stderr, "reset sync markers: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("rebuilt %d store documents and %d review documents (dry-run=%v)\n", storeTotal, reviewTotal, *dryRun)
}

// resetPendingMarkers advances every live pending row to its synced state.
// The documents were just rebuilt from current rows, so nothing is owed.
// Rows that mutate after the rebuild started flip back to UPDATED_PENDING
// on their own write path and are picked up by the schedulers.
func resetPendingMarkers(ctx context.Context, db *gorm.DB) error {
	transitions := []struct {
		from models.SyncStatus
		to   models.SyncStatus
	}{
		{models.SyncStatusCreatedPending, models.SyncStatusCreatedSynced},
		{models.SyncStatusUpdatedPending, models.SyncStatusUpdatedSynced},
	}
	tables := []interface{}{
		&models.Store{}, &models.Menu{}, &models.MenuOption{},
		&models.StockLedger{}, &models.Review{},
	}
	for _, table := range tables {
		for _, t := range transitions {
			err := db.WithContext(ctx).Model(table).
				Where("sync_status = ?", t.from).
				Update("sync_status", t.to).Error
			if err != nil {
				return err
			}
		}
	}
	return nil
}
