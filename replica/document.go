package replica

import "time"

// StoreDocument is the denormalized, read-optimized snapshot of one store
// aggregate. It is derived and disposable: rebuildable at any time from the
// relational store, keyed only by the root store id.
//
// Money fields are carried as exact decimal strings; BSON has no native
// arbitrary-precision type and the listing consumers only display them.
type StoreDocument struct {
	StoreId       int              `bson:"_id" json:"store_id"`
	Name          string           `bson:"name" json:"name"`
	Address       string           `bson:"address" json:"address"`
	Phone         string           `bson:"phone" json:"phone"`
	MinOrderPrice string           `bson:"min_order_price" json:"min_order_price"`
	Category      *string          `bson:"category" json:"category"`
	Region        *string          `bson:"region" json:"region"`
	Rating        float64          `bson:"rating" json:"rating"`
	ReviewCount   int              `bson:"review_count" json:"review_count"`
	Menus         []MenuDocument   `bson:"menus" json:"menus"`
	TopReviews    []ReviewDocument `bson:"top_reviews" json:"top_reviews"`
	UpdatedAt     time.Time        `bson:"updated_at" json:"updated_at"`
}

type MenuDocument struct {
	MenuId      int              `bson:"menu_id" json:"menu_id"`
	Name        string           `bson:"name" json:"name"`
	Description string           `bson:"description" json:"description"`
	Price       string           `bson:"price" json:"price"`
	Options     []OptionDocument `bson:"options" json:"options"`
	Stock       *StockSnapshot   `bson:"stock" json:"stock"`
}

type OptionDocument struct {
	OptionId   int    `bson:"option_id" json:"option_id"`
	Name       string `bson:"name" json:"name"`
	ExtraPrice string `bson:"extra_price" json:"extra_price"`
}

// StockSnapshot is the replica's view of a ledger quantity. It trails the
// ledger by at most one scheduler period.
type StockSnapshot struct {
	Quantity int64 `bson:"quantity" json:"quantity"`
	Version  int64 `bson:"version" json:"version"`
}

// ReviewDocument doubles as the review aggregate's own replica document and
// as the embedded entry in a store document's top-review list.
type ReviewDocument struct {
	ReviewId  int       `bson:"_id" json:"review_id"`
	StoreId   int       `bson:"store_id" json:"store_id"`
	Nickname  string    `bson:"nickname" json:"nickname"`
	Score     int       `bson:"score" json:"score"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
