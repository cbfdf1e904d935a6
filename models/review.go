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

type Review struct {
	ID         int        `gorm:"primary_key" json:"id"`
	StoreId    int        `gorm:"index;not null" json:"store_id"`
	UserId     int        `gorm:"index;not null" json:"user_id"`
	Nickname   string     `gorm:"size:50" json:"nickname"`
	Score      int        `gorm:"not null" json:"score"`
	Content    string     `gorm:"type:text" json:"content"`
	SyncStatus SyncStatus `gorm:"type:varchar(20);index;not null" json:"sync_status"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReview struct {
	StoreId  int    `json:"store_id" binding:"required"`
	UserId   int    `json:"user_id" binding:"required"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score" binding:"required"`
	Content  string `json:"content"`
}

// NextRating folds one new score into a store's running average:
// round(((oldRating*(n-1))+score)/n, 2) where n counts the new review.
func NextRating(oldRating decimal.Decimal, n int, score int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	sum := oldRating.Mul(decimal.NewFromInt(int64(n - 1))).Add(decimal.NewFromInt(int64(score)))
	return sum.Div(decimal.NewFromInt(int64(n))).Round(2)
}

// RatingAfterRemoval is the inverse recomputation for a deleted review.
// oldCount is the count before removal; zero remaining reviews reset to 0.
func RatingAfterRemoval(oldRating decimal.Decimal, oldCount int, score int) decimal.Decimal {
	remaining := oldCount - 1
	if remaining <= 0 {
		return decimal.Zero
	}
	sum := oldRating.Mul(decimal.NewFromInt(int64(oldCount))).Sub(decimal.NewFromInt(int64(score)))
	return sum.Div(decimal.NewFromInt(int64(remaining))).Round(2)
}

// CreateReview inserts the review at CREATED_PENDING and updates the store's
// authoritative rating/count in the same transaction. The replica's cached
// rating is refreshed later by the review scheduler's derived-refresh phase,
// so the store row's own sync state is not touched here.
func CreateReview(ctx context.Context, input *NewReview) (*Review, error) {
	if input.Score < 1 || input.Score > 5 {
		return nil, errors.New("score must be between 1 and 5")
	}
	store, err := FetchStore(ctx, input.StoreId)
	if err != nil {
		return nil, errors.New("store not found")
	}

	review := Review{
		StoreId:    input.StoreId,
		UserId:     input.UserId,
		Nickname:   input.Nickname,
		Score:      input.Score,
		Content:    input.Content,
		SyncStatus: SyncStatusCreatedPending,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		newCount := store.ReviewCount + 1
		newRating := NextRating(store.Rating, newCount, input.Score)
		return tx.Model(&Store{}).Where("id = ?", store.ID).Updates(map[string]interface{}{
			"rating":       newRating,
			"review_count": newCount,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteReview soft-deletes the review and reverses its contribution to the
// store's rating aggregate.
func DeleteReview(ctx context.Context, id int) (*Review, error) {
	var review Review
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("is_deleted = 0").First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	store, err := FetchStore(ctx, review.StoreId)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Review{}).Where("id = ?", review.ID).
			Updates(map[string]interface{}{"is_deleted": true, "deleted_at": &now}).Error; err != nil {
			return err
		}
		newCount := store.ReviewCount - 1
		if newCount < 0 {
			newCount = 0
		}
		newRating := RatingAfterRemoval(store.Rating, store.ReviewCount, review.Score)
		return tx.Model(&Store{}).Where("id = ?", store.ID).Updates(map[string]interface{}{
			"rating":       newRating,
			"review_count": newCount,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	review.MarkDeleted(now)
	return &review, nil
}

// TopReviews returns a store's best live reviews ordered by score then
// recency, capped at limit. Used by the derived-refresh phase.
func TopReviews(ctx context.Context, tx *gorm.DB, storeId int, limit int) ([]*Review, error) {
	var reviews []*Review
	err := tx.WithContext(ctx).
		Where("store_id = ? AND is_deleted = 0", storeId).
		Order("score DESC, created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}
