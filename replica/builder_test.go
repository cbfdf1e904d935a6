package replica

import (
	"testing"
	"time"

	"github.com/goorm-engineers4/delivery-backend/models"
	"github.com/shopspring/decimal"
)

func sampleAggregate() *models.StoreAggregate {
	store := &models.Store{
		ID:            7,
		Name:          "Gimbap Heaven",
		Address:       "12 Teheran-ro",
		Phone:         "02-555-0199",
		MinOrderPrice: decimal.RequireFromString("12000"),
		Rating:        decimal.RequireFromString("4.35"),
		ReviewCount:   20,
	}
	menu := &models.Menu{ID: 31, StoreId: 7, Name: "Tuna Gimbap", Price: decimal.RequireFromString("4500.50")}
	option := &models.MenuOption{ID: 310, MenuId: 31, Name: "Extra rice", ExtraPrice: decimal.RequireFromString("500")}
	ledger := &models.StockLedger{ID: 1, MenuId: 31, Quantity: 12, Version: 4}
	review := &models.Review{ID: 91, StoreId: 7, Nickname: "mina", Score: 5, Content: "great", CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	return &models.StoreAggregate{
		Store:         store,
		Category:      &models.StoreCategory{ID: 2, Name: "Korean"},
		Region:        &models.Region{ID: 3, Province: "Seoul", City: "Gangnam-gu", District: "Yeoksam-dong"},
		Menus:         []*models.Menu{menu},
		OptionsByMenu: map[int][]*models.MenuOption{31: {option}},
		LedgerByMenu:  map[int]*models.StockLedger{31: ledger},
		TopReviews:    []*models.Review{review},
	}
}

func TestBuildStoreDocument_FullAggregate(t *testing.T) {
	doc := BuildStoreDocument(sampleAggregate())

	if doc.StoreId != 7 {
		t.Fatalf("document id must be the store id, got %d", doc.StoreId)
	}
	if doc.MinOrderPrice != "12000" {
		t.Fatalf("money must survive as an exact decimal string, got %q", doc.MinOrderPrice)
	}
	if doc.Category == nil || *doc.Category != "Korean" {
		t.Fatalf("category name not denormalized: %v", doc.Category)
	}
	if doc.Region == nil || *doc.Region != "Seoul Gangnam-gu Yeoksam-dong" {
		t.Fatalf("region label not denormalized: %v", doc.Region)
	}
	if doc.Rating != 4.35 {
		t.Fatalf("expected rating 4.35, got %v", doc.Rating)
	}

	if len(doc.Menus) != 1 {
		t.Fatalf("expected 1 menu, got %d", len(doc.Menus))
	}
	menu := doc.Menus[0]
	if menu.Price != "4500.5" {
		t.Fatalf("expected menu price 4500.5, got %q", menu.Price)
	}
	if len(menu.Options) != 1 || menu.Options[0].ExtraPrice != "500" {
		t.Fatalf("options not embedded: %+v", menu.Options)
	}
	if menu.Stock == nil || menu.Stock.Quantity != 12 || menu.Stock.Version != 4 {
		t.Fatalf("stock snapshot not embedded: %+v", menu.Stock)
	}

	if len(doc.TopReviews) != 1 || doc.TopReviews[0].ReviewId != 91 {
		t.Fatalf("top reviews not embedded: %+v", doc.TopReviews)
	}
}

func TestBuildStoreDocument_BareStore(t *testing.T) {
	agg := &models.StoreAggregate{Store: &models.Store{ID: 7, Name: "New Store"}}
	doc := BuildStoreDocument(agg)

	if doc.Menus == nil || len(doc.Menus) != 0 {
		t.Fatalf("child collections must be empty slices, never nil: %#v", doc.Menus)
	}
	if doc.TopReviews == nil || len(doc.TopReviews) != 0 {
		t.Fatalf("child collections must be empty slices, never nil: %#v", doc.TopReviews)
	}
	if doc.Category != nil || doc.Region != nil {
		t.Fatalf("missing lookups must stay nil: %v %v", doc.Category, doc.Region)
	}
}

func TestBuildMenuDocument_MissingLedger(t *testing.T) {
	menu := &models.Menu{ID: 31, Name: "Tuna Gimbap", Price: decimal.Zero}
	doc := BuildMenuDocument(menu, nil, nil)

	if doc.Stock != nil {
		t.Fatalf("missing ledger must yield a nil stock snapshot, got %+v", doc.Stock)
	}
	if doc.Options == nil || len(doc.Options) != 0 {
		t.Fatalf("options must be an empty slice, got %#v", doc.Options)
	}
}

func TestRegionLabel_SkipsEmptyParts(t *testing.T) {
	got := regionLabel(&models.Region{Province: "Seoul", District: "Yeoksam-dong"})
	if got != "Seoul Yeoksam-dong" {
		t.Fatalf("expected empty parts skipped, got %q", got)
	}
}
