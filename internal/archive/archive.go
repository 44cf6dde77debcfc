package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Archiver stores the previous version of an aspect before it is replaced.
type Archiver interface {
	Archive(ctx context.Context, urn, aspect string, value json.RawMessage) error
	Close(ctx context.Context) error
}

// Nop discards everything. It is used when no archive is configured.
type Nop struct{}

func (Nop) Archive(context.Context, string, string, json.RawMessage) error { return nil }
func (Nop) Close(context.Context) error                                    { return nil }

// MongoArchiver writes aspect snapshots into a MongoDB collection.
type MongoArchiver struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoArchiver connects to MongoDB and returns an archiver writing to
// database.collection.
func NewMongoArchiver(ctx context.Context, connectionString, database, collection string) (*MongoArchiver, error) {
	opts := options.Client().ApplyURI(connectionString)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &MongoArchiver{
		client:     client,
		collection: client.Database(database).Collection(collection),
		now:        time.Now,
	}, nil
}

// Archive inserts one snapshot document.
func (m *MongoArchiver) Archive(ctx context.Context, urn, aspect string, value json.RawMessage) error {
	doc, err := snapshotDocument(urn, aspect, value, m.now())
	if err != nil {
		return err
	}
	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("archiving %s of %s: %w", aspect, urn, err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (m *MongoArchiver) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// snapshotDocument builds the stored document. The aspect value is kept as a
// nested document so it stays queryable.
func snapshotDocument(urn, aspect string, value json.RawMessage, at time.Time) (bson.D, error) {
	var body bson.D
	if len(value) > 0 {
		if err := bson.UnmarshalExtJSON(value, false, &body); err != nil {
			return nil, fmt.Errorf("converting %s of %s: %w", aspect, urn, err)
		}
	}
	return bson.D{
		{Key: "urn", Value: urn},
		{Key: "aspect", Value: aspect},
		{Key: "archived_at", Value: at.UTC()},
		{Key: "value", Value: body},
	}, nil
}
