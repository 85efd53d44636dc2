package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

var ErrDatabaseRequired = errors.New("mongo: database name required")

// Client owns the connection shared by the outbox, inbox and idempotency
// collections. Writes use majority concern so a replayed commit or a
// deduplicated event survives a primary failover.
type Client struct {
	DB *mongo.Database
}

// New connects and pings the primary, failing fast when Mongo is unreachable.
func New(ctx context.Context, uri, database string) (*Client, error) {
	if strings.TrimSpace(database) == "" {
		return nil, ErrDatabaseRequired
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("innkeep").
		SetRetryWrites(true).
		SetServerSelectionTimeout(5 * time.Second).
		SetWriteConcern(writeconcern.Majority())
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := m.Ping(ctx, readpref.Primary()); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}
