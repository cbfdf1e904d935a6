package replica

import "context"

// Store is the write surface of the document replica. The relational side is
// the only writer; search/listing services read the documents directly.
//
// Upserts overwrite whole documents keyed by the root id, which is what makes
// the schedulers' push-then-mark sequence safe to repeat after a crash.
type Store interface {
	UpsertStoreDocument(ctx context.Context, doc StoreDocument) error
	UpsertStoreDocuments(ctx context.Context, docs []StoreDocument) error
	DeleteStoreDocument(ctx context.Context, storeId int) error

	UpsertStoreMenu(ctx context.Context, storeId int, menu MenuDocument) error
	RemoveStoreMenu(ctx context.Context, storeId int, menuId int) error
	UpdateMenuStock(ctx context.Context, storeId int, menuId int, stock StockSnapshot) error

	ReplaceTopReviews(ctx context.Context, storeId int, reviews []ReviewDocument, rating float64, reviewCount int) error

	UpsertReviewDocument(ctx context.Context, doc ReviewDocument) error
	DeleteReviewDocument(ctx context.Context, reviewId int) error
}
