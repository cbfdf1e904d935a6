package models

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goorm-engineers4/delivery-backend/utils"
)

// memLedgerStore is an in-memory LedgerStore with real version-guard
// semantics: concurrent SaveVersioned calls against the same version admit
// exactly one winner, like the conditional UPDATE it stands in for.
type memLedgerStore struct {
	mu      sync.Mutex
	ledgers map[int]*StockLedger
	saves   int
}

func newMemLedgerStore(ledgers ...*StockLedger) *memLedgerStore {
	s := &memLedgerStore{ledgers: map[int]*StockLedger{}}
	for _, l := range ledgers {
		s.ledgers[l.MenuId] = l
	}
	return s
}

func (s *memLedgerStore) GetByMenuId(ctx context.Context, menuId int) (*StockLedger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[menuId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *ledger
	return &copied, nil
}

func (s *memLedgerStore) SaveVersioned(ctx context.Context, ledger *StockLedger, expectedVersion int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	stored, ok := s.ledgers[ledger.MenuId]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	stored.Quantity = ledger.Quantity
	stored.Version = expectedVersion + 1
	stored.SyncStatus = ledger.SyncStatus
	return true, nil
}

// contendedLedgerStore fails every SaveVersioned, simulating a hot row where
// another writer always lands first.
type contendedLedgerStore struct {
	memLedgerStore
}

func (s *contendedLedgerStore) SaveVersioned(ctx context.Context, ledger *StockLedger, expectedVersion int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return false, nil
}

func TestDecreaseStock_RejectsNonPositiveAmounts(t *testing.T) {
	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: 5})
	for _, amount := range []int64{0, -1, -100} {
		if _, err := DecreaseStock(context.Background(), store, 10, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("DecreaseStock(amount=%d): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if _, err := IncreaseStock(context.Background(), store, 10, -3); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("IncreaseStock(-3): expected ErrInvalidAmount, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("rejected amounts must not touch the store, saw %d saves", store.saves)
	}
}

func TestDecreaseStock_InsufficientStock(t *testing.T) {
	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: 2})
	if _, err := DecreaseStock(context.Background(), store, 10, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	ledger, _ := store.GetByMenuId(context.Background(), 10)
	if ledger.Quantity != 2 || ledger.Version != 0 {
		t.Fatalf("failed decrease must leave the row untouched: %+v", ledger)
	}
}

func TestDecreaseStock_ExactDrain(t *testing.T) {
	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: 3})
	ledger, err := DecreaseStock(context.Background(), store, 10, 3)
	if err != nil {
		t.Fatalf("decrease to exactly zero must succeed: %v", err)
	}
	if ledger.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", ledger.Quantity)
	}
	if ledger.Version != 1 {
		t.Fatalf("success must bump the version, got %d", ledger.Version)
	}
	if !ledger.SyncStatus.IsPending() {
		t.Fatalf("a stock movement must leave the ledger pending, got %s", ledger.SyncStatus)
	}
}

func TestDecreaseStock_UnknownMenu(t *testing.T) {
	store := newMemLedgerStore()
	if _, err := DecreaseStock(context.Background(), store, 99, 1); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestDecreaseStock_RetriesExhausted(t *testing.T) {
	store := &contendedLedgerStore{}
	store.ledgers = map[int]*StockLedger{10: {ID: 1, MenuId: 10, Quantity: 100}}
	if _, err := DecreaseStock(context.Background(), store, 10, 1); !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict after retry budget, got %v", err)
	}
	if store.saves != 3 {
		t.Fatalf("expected 3 attempts by default, got %d", store.saves)
	}
}

func TestDecreaseStock_TwoBuyersOneUnit(t *testing.T) {
	// quantity 5, two concurrent decreases of 3: exactly one succeeds
	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: 5})

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := DecreaseStock(context.Background(), store, 10, 3)
			results <- err
		}()
	}

	var succeeded, outOfStock int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || outOfStock != 1 {
		t.Fatalf("expected exactly one winner: succeeded=%d outOfStock=%d", succeeded, outOfStock)
	}
	ledger, _ := store.GetByMenuId(context.Background(), 10)
	if ledger.Quantity != 2 {
		t.Fatalf("expected remaining quantity 2, got %d", ledger.Quantity)
	}
}

func TestDecreaseStock_ConcurrentSingleDecrements(t *testing.T) {
	// K workers each take 1 from quantity N: exactly N succeed and the
	// ledger lands on zero with version N. The retry budget is raised so
	// no worker gives up before observing either a win or an empty ledger.
	const quantity = 40
	const workers = 60
	t.Setenv("STOCK_MAX_RETRIES", "1000")

	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: quantity})

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := DecreaseStock(context.Background(), store, 10, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, outOfStock int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != quantity {
		t.Fatalf("expected exactly %d successful decrements, got %d", quantity, succeeded)
	}
	if outOfStock != workers-quantity {
		t.Fatalf("expected %d out-of-stock failures, got %d", workers-quantity, outOfStock)
	}

	ledger, _ := store.GetByMenuId(context.Background(), 10)
	if ledger.Quantity != 0 {
		t.Fatalf("expected drained ledger, got quantity %d", ledger.Quantity)
	}
	if ledger.Version != quantity {
		t.Fatalf("every physical write bumps the version once: expected %d, got %d", quantity, ledger.Version)
	}
}

func TestIncreaseStock_RestoresAfterFailure(t *testing.T) {
	store := newMemLedgerStore(&StockLedger{ID: 1, MenuId: 10, Quantity: 1})
	if _, err := DecreaseStock(context.Background(), store, 10, 1); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	ledger, err := IncreaseStock(context.Background(), store, 10, 1)
	if err != nil {
		t.Fatalf("increase: %v", err)
	}
	if ledger.Quantity != 1 {
		t.Fatalf("expected restored quantity 1, got %d", ledger.Quantity)
	}
	if ledger.Version != 2 {
		t.Fatalf("restore is a second physical write, expected version 2, got %d", ledger.Version)
	}
}
