// Package store provides persistent KeyStore backends. Key material
// is wrapped by the kms provider before it reaches the database.
package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"

	"github.com/caredata-io/school-health-module-encryption/keystore"
	"github.com/caredata-io/school-health-module-encryption/kms"
	"github.com/caredata-io/school-health-module-encryption/types"
)

const keyCollection = "encryption_keys"

// keyDocument is the persisted shape of an EncryptionKey. Material is
// stored only in wrapped form.
type keyDocument struct {
	ID          string            `bson:"_id"`
	Algorithm   string            `bson:"algorithm"`
	Ciphertext  []byte            `bson:"ciphertext"`
	IV          []byte            `bson:"iv"`
	WrapKeyID   string            `bson:"wrapKeyId"`
	Mechanism   uint64            `bson:"mechanism"`
	CreatedAt   time.Time         `bson:"createdAt"`
	ExpiresAt   time.Time         `bson:"expiresAt"`
	Status      types.KeyStatus   `bson:"status"`
	Usage       string            `bson:"usage"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	LastUpdated time.Time         `bson:"lastUpdated"`
}

// MongoStore persists encryption keys in MongoDB. Implements
// interfaces.KeyStore.
type MongoStore struct {
	collection *mongo.Collection
	provider   kms.Provider
	cache      *keystore.UnwrapCache
	logger     zerolog.Logger
}

// NewMongoStore creates a store over the database. The provider wraps
// key material at rest; the cache is optional.
func NewMongoStore(db *mongo.Database, provider kms.Provider, cache *keystore.UnwrapCache) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if provider == nil {
		return nil, fmt.Errorf("wrapping provider is required")
	}
	return &MongoStore{
		collection: db.Collection(keyCollection),
		provider:   provider,
		cache:      cache,
		logger:     log.With().Str("component", "keystore-mongo").Logger(),
	}, nil
}

func (s *MongoStore) wrap(ctx context.Context, material []byte) (*wrapping.BlobInfo, error) {
	blob, err := s.provider.GetWrapper().Encrypt(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap key material: %w", err)
	}
	return blob, nil
}

func (s *MongoStore) unwrap(ctx context.Context, doc *keyDocument) ([]byte, error) {
	if s.cache != nil {
		if cached := s.cache.Get(doc.ID); cached != nil {
			return cached.Bytes(), nil
		}
	}

	blob := &wrapping.BlobInfo{
		Ciphertext: doc.Ciphertext,
		Iv:         doc.IV,
		KeyInfo: &wrapping.KeyInfo{
			KeyId:     doc.WrapKeyID,
			Mechanism: doc.Mechanism,
		},
	}
	material, err := s.provider.GetWrapper().Decrypt(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key material: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(doc.ID, material)
	}
	return material, nil
}

func (s *MongoStore) toDocument(ctx context.Context, key *types.EncryptionKey) (*keyDocument, error) {
	blob, err := s.wrap(ctx, key.Material)
	if err != nil {
		return nil, err
	}

	doc := &keyDocument{
		ID:          key.ID,
		Algorithm:   key.Algorithm,
		Ciphertext:  blob.Ciphertext,
		IV:          blob.Iv,
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
		Status:      key.Status,
		Usage:       key.Usage,
		Metadata:    key.Metadata,
		LastUpdated: time.Now().UTC(),
	}
	if blob.KeyInfo != nil {
		doc.WrapKeyID = blob.KeyInfo.KeyId
		doc.Mechanism = blob.KeyInfo.Mechanism
	}
	return doc, nil
}

func (s *MongoStore) toKey(ctx context.Context, doc *keyDocument) (*types.EncryptionKey, error) {
	material, err := s.unwrap(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &types.EncryptionKey{
		ID:        doc.ID,
		Algorithm: doc.Algorithm,
		Material:  material,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
		Status:    doc.Status,
		Usage:     doc.Usage,
		Metadata:  doc.Metadata,
	}, nil
}

// Generate creates, wraps and persists a new active key
func (s *MongoStore) Generate(ctx context.Context, algorithm string, usage string) (*types.EncryptionKey, error) {
	if algorithm == "" {
		algorithm = types.AlgorithmAES256GCM
	}
	size := types.KeySizeForAlgorithm(algorithm)
	if size == 0 {
		return nil, &types.ValidationError{Reason: fmt.Sprintf("unsupported algorithm: %s", algorithm)}
	}

	material := make([]byte, size)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	now := time.Now().UTC()
	key := &types.EncryptionKey{
		ID:        uuid.New().String(),
		Algorithm: algorithm,
		Material:  material,
		CreatedAt: now,
		ExpiresAt: now.Add(types.DefaultKeyLifetime),
		Status:    types.KeyStatusActive,
		Usage:     usage,
		Metadata:  make(map[string]string),
	}

	if err := s.Put(ctx, key); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("keyId", key.ID).
		Str("algorithm", algorithm).
		Msg("Generated and persisted encryption key")
	return key, nil
}

// Put wraps the material and upserts the key document
func (s *MongoStore) Put(ctx context.Context, key *types.EncryptionKey) error {
	if key == nil || key.ID == "" {
		return types.ErrInvalidInput
	}

	doc, err := s.toDocument(ctx, key)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": key.ID}
	update := bson.M{"$set": doc}
	opts := options.UpdateOne().SetUpsert(true)

	if _, err := s.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to store key: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(key.ID, key.Material)
	}
	return nil
}

// Get fetches and unwraps the key by ID
func (s *MongoStore) Get(ctx context.Context, keyID string) (*types.EncryptionKey, error) {
	var doc keyDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": keyID}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &types.KeyNotFoundError{KeyID: keyID}
		}
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	return s.toKey(ctx, &doc)
}

// List returns keys matching the filter, newest first
func (s *MongoStore) List(ctx context.Context, filter types.KeyFilter) ([]*types.EncryptionKey, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Usage != "" {
		query["usage"] = filter.Usage
	}
	if filter.Algorithm != "" {
		query["algorithm"] = filter.Algorithm
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []*types.EncryptionKey
	for cursor.Next(ctx) {
		var doc keyDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode key document: %w", err)
		}
		key, err := s.toKey(ctx, &doc)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return keys, nil
}

// UpdateStatus transitions the key lifecycle state
func (s *MongoStore) UpdateStatus(ctx context.Context, keyID string, status types.KeyStatus) error {
	switch status {
	case types.KeyStatusActive, types.KeyStatusRotated, types.KeyStatusRevoked:
	default:
		return &types.ValidationError{Reason: fmt.Sprintf("unknown key status: %s", status)}
	}

	update := bson.M{"$set": bson.M{"status": status, "lastUpdated": time.Now().UTC()}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": keyID}, update)
	if err != nil {
		return fmt.Errorf("failed to update key status: %w", err)
	}
	if result.MatchedCount == 0 {
		return &types.KeyNotFoundError{KeyID: keyID}
	}
	return nil
}

// Revoke marks the key revoked and drops any cached material from
// future encrypt paths. Idempotent.
func (s *MongoStore) Revoke(ctx context.Context, keyID string) error {
	if err := s.UpdateStatus(ctx, keyID, types.KeyStatusRevoked); err != nil {
		return err
	}
	s.logger.Warn().Str("keyId", keyID).Msg("Key revoked")
	return nil
}

// Export returns the serializable key shape without fetching material
func (s *MongoStore) Export(ctx context.Context, keyID string) (*types.KeyExport, error) {
	projection := bson.M{"ciphertext": 0, "iv": 0}
	opts := options.FindOne().SetProjection(projection)

	var doc keyDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": keyID}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &types.KeyNotFoundError{KeyID: keyID}
		}
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}

	return &types.KeyExport{
		ID:        doc.ID,
		Algorithm: doc.Algorithm,
		CreatedAt: doc.CreatedAt,
		ExpiresAt: doc.ExpiresAt,
		Status:    doc.Status,
		Usage:     doc.Usage,
		Metadata:  doc.Metadata,
	}, nil
}
