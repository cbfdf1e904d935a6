package replica

import (
	"context"
	"errors"
	"time"

	"github.com/goorm-engineers4/delivery-backend/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrStoreDocumentMissing reports a nested write against a store document
// that does not exist yet. The schedulers leave the row pending; the store
// family's own create push materializes the document with all children
// embedded, after which the nested write succeeds.
var ErrStoreDocumentMissing = errors.New("store document not found")

const (
	storeCollection  = "stores"
	reviewCollection = "reviews"
)

type mongoStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoStore wires the replica interface onto the MongoDB database from
// config. Every operation gets a bounded timeout; replica pushes are network
// calls and the schedulers retry naturally on the next tick.
func NewMongoStore(db *mongo.Database) Store {
	timeout := time.Duration(config.IntFromEnv("REPLICA_OP_TIMEOUT_MS", 5000)) * time.Millisecond
	return &mongoStore{db: db, timeout: timeout}
}

func (s *mongoStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *mongoStore) stores() *mongo.Collection {
	return s.db.Collection(storeCollection)
}

func (s *mongoStore) reviews() *mongo.Collection {
	return s.db.Collection(reviewCollection)
}

func (s *mongoStore) UpsertStoreDocument(ctx context.Context, doc StoreDocument) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.stores().ReplaceOne(opCtx,
		bson.M{"_id": doc.StoreId},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *mongoStore) UpsertStoreDocuments(ctx context.Context, docs []StoreDocument) error {
	if len(docs) == 0 {
		return nil
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.StoreId}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	_, err := s.stores().BulkWrite(opCtx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (s *mongoStore) DeleteStoreDocument(ctx context.Context, storeId int) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.stores().DeleteOne(opCtx, bson.M{"_id": storeId})
	return err
}

// UpsertStoreMenu replaces the nested menu entry inside the store document:
// pull any existing entry with the same menu id, then push the new one.
func (s *mongoStore) UpsertStoreMenu(ctx context.Context, storeId int, menu MenuDocument) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	pulled, err := s.stores().UpdateOne(opCtx,
		bson.M{"_id": storeId},
		bson.M{"$pull": bson.M{"menus": bson.M{"menu_id": menu.MenuId}}},
	)
	if err != nil {
		return err
	}
	if pulled.MatchedCount == 0 {
		return ErrStoreDocumentMissing
	}
	_, err = s.stores().UpdateOne(opCtx,
		bson.M{"_id": storeId},
		bson.M{
			"$push": bson.M{"menus": menu},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	return err
}

func (s *mongoStore) RemoveStoreMenu(ctx context.Context, storeId int, menuId int) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.stores().UpdateOne(opCtx,
		bson.M{"_id": storeId},
		bson.M{"$pull": bson.M{"menus": bson.M{"menu_id": menuId}}},
	)
	return err
}

func (s *mongoStore) UpdateMenuStock(ctx context.Context, storeId int, menuId int, stock StockSnapshot) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.stores().UpdateOne(opCtx,
		bson.M{"_id": storeId, "menus.menu_id": menuId},
		bson.M{"$set": bson.M{
			"menus.$.stock": stock,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStoreDocumentMissing
	}
	return nil
}

func (s *mongoStore) ReplaceTopReviews(ctx context.Context, storeId int, reviews []ReviewDocument, rating float64, reviewCount int) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if reviews == nil {
		reviews = []ReviewDocument{}
	}
	_, err := s.stores().UpdateOne(opCtx,
		bson.M{"_id": storeId},
		bson.M{"$set": bson.M{
			"top_reviews":  reviews,
			"rating":       rating,
			"review_count": reviewCount,
			"updated_at":   time.Now().UTC(),
		}},
	)
	return err
}

func (s *mongoStore) UpsertReviewDocument(ctx context.Context, doc ReviewDocument) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.reviews().ReplaceOne(opCtx,
		bson.M{"_id": doc.ReviewId},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *mongoStore) DeleteReviewDocument(ctx context.Context, reviewId int) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.reviews().DeleteOne(opCtx, bson.M{"_id": reviewId})
	return err
}
