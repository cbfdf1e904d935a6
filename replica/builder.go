package replica

import (
	"strings"
	"time"

	"github.com/goorm-engineers4/delivery-backend/models"
)

// The builder is a pure transformation from normalized rows to replica
// documents: no side effects, safe to call concurrently, tolerant of
// partially loaded children. Child collections always come out as empty
// slices, never nil, so replica consumers don't need nil checks.

// BuildStoreDocument renders one store aggregate into its replica document.
// A missing category/region/ledger yields a nil nested field rather than an
// error.
func BuildStoreDocument(agg *models.StoreAggregate) StoreDocument {
	store := agg.Store

	doc := StoreDocument{
		StoreId:       store.ID,
		Name:          store.Name,
		Address:       store.Address,
		Phone:         store.Phone,
		MinOrderPrice: store.MinOrderPrice.String(),
		Rating:        store.Rating.InexactFloat64(),
		ReviewCount:   store.ReviewCount,
		Menus:         make([]MenuDocument, 0, len(agg.Menus)),
		TopReviews:    make([]ReviewDocument, 0, len(agg.TopReviews)),
		UpdatedAt:     time.Now().UTC(),
	}

	if agg.Category != nil {
		name := agg.Category.Name
		doc.Category = &name
	}
	if agg.Region != nil {
		region := regionLabel(agg.Region)
		doc.Region = &region
	}

	for _, menu := range agg.Menus {
		doc.Menus = append(doc.Menus, BuildMenuDocument(menu, agg.OptionsByMenu[menu.ID], agg.LedgerByMenu[menu.ID]))
	}
	for _, review := range agg.TopReviews {
		doc.TopReviews = append(doc.TopReviews, BuildReviewDocument(review))
	}

	return doc
}

// BuildMenuDocument renders one menu with its options and stock snapshot.
// ledger may be nil (partially loaded aggregate); the stock field is then nil.
func BuildMenuDocument(menu *models.Menu, options []*models.MenuOption, ledger *models.StockLedger) MenuDocument {
	doc := MenuDocument{
		MenuId:      menu.ID,
		Name:        menu.Name,
		Description: menu.Description,
		Price:       menu.Price.String(),
		Options:     make([]OptionDocument, 0, len(options)),
	}
	for _, option := range options {
		doc.Options = append(doc.Options, OptionDocument{
			OptionId:   option.ID,
			Name:       option.Name,
			ExtraPrice: option.ExtraPrice.String(),
		})
	}
	if ledger != nil {
		doc.Stock = &StockSnapshot{
			Quantity: ledger.Quantity,
			Version:  ledger.Version,
		}
	}
	return doc
}

func BuildReviewDocument(review *models.Review) ReviewDocument {
	return ReviewDocument{
		ReviewId:  review.ID,
		StoreId:   review.StoreId,
		Nickname:  review.Nickname,
		Score:     review.Score,
		Content:   review.Content,
		CreatedAt: review.CreatedAt,
	}
}

func regionLabel(region *models.Region) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{region.Province, region.City, region.District} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
