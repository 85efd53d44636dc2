package inbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"innkeep/internal/app/policies"
)

const collectionName = "innkeep_inbox"

// Store deduplicates consumed events per consumer name using a unique index.
// Entries expire after ttl.
type Store struct {
	col      *mongo.Collection
	consumer string
}

func NewStore(ctx context.Context, db *mongo.Database, consumer string, ttl time.Duration) (*Store, error) {
	col := db.Collection(collectionName)
	models := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}
	if ttl > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
		})
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, err
	}
	return &Store{col: col, consumer: consumer}, nil
}

func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	doc := bson.M{"event_id": eventID, "consumer": s.consumer, "received_at": time.Now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

var _ policies.Inbox = (*Store)(nil)
