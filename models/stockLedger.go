package models

import (
	"context"
	"errors"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/goorm-engineers4/delivery-backend/utils"
	"gorm.io/gorm"
)

// StockLedger is the authoritative quantity counter for one menu item. It is
// the only row in the platform that two request threads legitimately race on;
// every physical write is guarded by the version column.
type StockLedger struct {
	ID         int        `gorm:"primary_key" json:"id"`
	MenuId     int        `gorm:"uniqueIndex;not null" json:"menu_id"`
	Quantity   int64      `gorm:"not null;default:0" json:"quantity"`
	Version    int64      `gorm:"not null;default:0" json:"version"`
	SyncStatus SyncStatus `gorm:"type:varchar(20);index;not null" json:"sync_status"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

var (
	// ErrInsufficientStock is a business-rule failure: the order path maps it
	// to a client-visible "out of stock" response. Never retried.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockConflict surfaces after the optimistic-concurrency retry budget
	// is exhausted.
	ErrStockConflict = errors.New("stock conflict: retries exhausted")

	// ErrInvalidAmount rejects zero or negative mutation amounts. The amount
	// is never sign-normalized.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// LedgerStore abstracts ledger persistence so the retry loop can be exercised
// without a database.
type LedgerStore interface {
	GetByMenuId(ctx context.Context, menuId int) (*StockLedger, error)
	// SaveVersioned writes the ledger only if the stored row still carries
	// expectedVersion; it returns false when another writer got there first.
	SaveVersioned(ctx context.Context, ledger *StockLedger, expectedVersion int64) (bool, error)
}

type gormLedgerStore struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewLedgerStore returns the GORM-backed ledger store. Each database round
// trip gets a short per-attempt timeout: stock mutations sit on the
// synchronous order path.
func NewLedgerStore(db *gorm.DB) LedgerStore {
	timeout := time.Duration(config.IntFromEnv("STOCK_ATTEMPT_TIMEOUT_MS", 2000)) * time.Millisecond
	return &gormLedgerStore{db: db, timeout: timeout}
}

func (s *gormLedgerStore) GetByMenuId(ctx context.Context, menuId int) (*StockLedger, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ledger StockLedger
	if err := s.db.WithContext(attemptCtx).Where("menu_id = ?", menuId).First(&ledger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &ledger, nil
}

func (s *gormLedgerStore) SaveVersioned(ctx context.Context, ledger *StockLedger, expectedVersion int64) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := s.db.WithContext(attemptCtx).Model(&StockLedger{}).
		Where("id = ? AND version = ?", ledger.ID, expectedVersion).
		Updates(map[string]interface{}{
			"quantity":    ledger.Quantity,
			"version":     expectedVersion + 1,
			"sync_status": ledger.SyncStatus,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func stockMaxRetries() int {
	n := config.IntFromEnv("STOCK_MAX_RETRIES", 3)
	if n < 1 {
		n = 1
	}
	return n
}

// DecreaseStock removes amount from the menu's ledger under optimistic
// concurrency: read, check, conditional write, reload-and-retry on conflict.
// Exactly one writer wins each physical update; the loser re-reads fresh
// state, so K concurrent single decrements against quantity N yield exactly
// N successes and K-N ErrInsufficientStock failures.
func DecreaseStock(ctx context.Context, store LedgerStore, menuId int, amount int64) (*StockLedger, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	for attempt := 0; attempt < stockMaxRetries(); attempt++ {
		ledger, err := store.GetByMenuId(ctx, menuId)
		if err != nil {
			return nil, err
		}
		if ledger.Quantity-amount < 0 {
			return nil, ErrInsufficientStock
		}

		expected := ledger.Version
		ledger.Quantity -= amount
		ledger.SyncStatus = ledger.SyncStatus.MarkUpdated()

		ok, err := store.SaveVersioned(ctx, ledger, expected)
		if err != nil {
			return nil, err
		}
		if ok {
			ledger.Version = expected + 1
			UpdateStockInCache(ledger.MenuId, ledger.Quantity)
			return ledger, nil
		}
		// version moved underneath us; reload and retry
	}
	return nil, ErrStockConflict
}

// IncreaseStock is the symmetric restoration path (e.g. after a failed
// downstream payment). No lower-bound check.
func IncreaseStock(ctx context.Context, store LedgerStore, menuId int, amount int64) (*StockLedger, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	for attempt := 0; attempt < stockMaxRetries(); attempt++ {
		ledger, err := store.GetByMenuId(ctx, menuId)
		if err != nil {
			return nil, err
		}

		expected := ledger.Version
		ledger.Quantity += amount
		ledger.SyncStatus = ledger.SyncStatus.MarkUpdated()

		ok, err := store.SaveVersioned(ctx, ledger, expected)
		if err != nil {
			return nil, err
		}
		if ok {
			ledger.Version = expected + 1
			UpdateStockInCache(ledger.MenuId, ledger.Quantity)
			return ledger, nil
		}
	}
	return nil, ErrStockConflict
}
