// Package database manages the MongoDB connection for Farmlink.
//
// The connection is constructed explicitly at boot and injected into the
// repositories — there is no ambient global handle. Close it on shutdown:
//
//	db, err := database.Connect(ctx)
//	if err != nil { ... }
//	defer db.Close(context.Background())
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"farmlink/config"
)

// Collection names. One place, so repositories and the index bootstrap
// never drift apart.
const (
	ColUsers    = "users"
	ColProducts = "products"
	ColOrders   = "orders"
)

// DB wraps the Mongo client and the application database handle.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(config.MongoURI()).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(25)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &DB{client: client, db: client.Database(config.MongoDB())}, nil
}

// Database returns the application database handle.
func (d *DB) Database() *mongo.Database { return d.db }

// Collection returns a collection by name.
func (d *DB) Collection(name string) *mongo.Collection { return d.db.Collection(name) }

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the application depends on. Mongo index
// creation is idempotent, so this runs on every server start and via the
// db:index CLI command.
func (d *DB) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// users: unique email lookup for registration and login.
	_, err := d.db.Collection(ColUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("database: users indexes: %w", err)
	}

	// products: free-text search, geo queries, and the farmer's own listing.
	_, err = d.db.Collection(ColProducts).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "name", Value: "text"},
			{Key: "description", Value: "text"},
			{Key: "category", Value: "text"},
		}},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "isAvailable", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("database: products indexes: %w", err)
	}

	// orders: participant listings sorted newest-first.
	_, err = d.db.Collection(ColOrders).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("database: orders indexes: %w", err)
	}

	return nil
}
