// Package store provides persistent RecordStore backends for the
// column registry.
package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/caredata-io/school-health-module-encryption/types"
)

const recordCollection = "encrypted_columns"

// MongoRecordStore persists encrypted-column records in MongoDB.
// Implements interfaces.RecordStore.
type MongoRecordStore struct {
	collection *mongo.Collection
	logger     zerolog.Logger
}

// NewMongoRecordStore creates a store over the database
func NewMongoRecordStore(db *mongo.Database) (*MongoRecordStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &MongoRecordStore{
		collection: db.Collection(recordCollection),
		logger:     log.With().Str("component", "registry-mongo").Logger(),
	}, nil
}

func recordFilter(table, column string) bson.M {
	return bson.M{"table": table, "column": column}
}

// Put upserts the record for (table, column)
func (s *MongoRecordStore) Put(ctx context.Context, record *types.EncryptedColumnRecord) error {
	if record == nil || record.Table == "" || record.Column == "" {
		return types.ErrInvalidInput
	}

	update := bson.M{"$set": record}
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := s.collection.UpdateOne(ctx, recordFilter(record.Table, record.Column), update, opts); err != nil {
		return fmt.Errorf("failed to store column record: %w", err)
	}
	return nil
}

// Get returns the record for (table, column)
func (s *MongoRecordStore) Get(ctx context.Context, table, column string) (*types.EncryptedColumnRecord, error) {
	var record types.EncryptedColumnRecord
	err := s.collection.FindOne(ctx, recordFilter(table, column)).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, types.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to fetch column record: %w", err)
	}
	return &record, nil
}

// Delete removes the record for (table, column)
func (s *MongoRecordStore) Delete(ctx context.Context, table, column string) error {
	result, err := s.collection.DeleteOne(ctx, recordFilter(table, column))
	if err != nil {
		return fmt.Errorf("failed to delete column record: %w", err)
	}
	if result.DeletedCount == 0 {
		return types.ErrRecordNotFound
	}
	return nil
}

// List returns all records ordered by table then column
func (s *MongoRecordStore) List(ctx context.Context) ([]*types.EncryptedColumnRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "table", Value: 1}, {Key: "column", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list column records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*types.EncryptedColumnRecord
	for cursor.Next(ctx) {
		var record types.EncryptedColumnRecord
		if err := cursor.Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode column record: %w", err)
		}
		records = append(records, &record)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return records, nil
}
