// database/mongo.go
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoClient wraps the driver client together with the database handle
// the stores operate on.
type MongoClient struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongoDB connects to MongoDB, verifies the connection with a ping and
// returns a handle on the named database.
func NewMongoDB(uri, dbName string) (*MongoClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	log.Println("Successfully connected to MongoDB!")
	return &MongoClient{Client: client, DB: client.Database(dbName)}, nil
}

// Ping reports whether the server is still reachable. Used by the health
// endpoint.
func (c *MongoClient) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx, readpref.Primary())
}

// Collection is a convenience accessor for the stores.
func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.DB.Collection(name)
}

// Close disconnects the client, waiting briefly for in-flight operations.
func (c *MongoClient) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
		return
	}
	log.Println("MongoDB connection closed.")
}
