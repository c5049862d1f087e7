package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taalcoach/internal/database"
	"taalcoach/internal/models"
)

// DocumentStore is the persistence boundary for learner documents: get, set
// and partially update one document per learner, keyed by user ID. It holds
// no business logic; shape normalization happens above it.
type DocumentStore interface {
	// Get returns the raw stored document, or ErrDocumentNotFound.
	Get(ctx context.Context, userID string) (*models.StoredDocument, error)

	// Set writes the full document, creating it if absent.
	Set(ctx context.Context, userID string, doc *models.LearnerDocument) error

	// Update merges the given fields into the stored document. Nil-valued
	// fields are dropped before the write; the store must never persist a
	// null-valued field. A missing document is a silent no-op.
	Update(ctx context.Context, userID string, fields bson.M) error
}

// MongoDocumentStore is the MongoDB-backed document store.
type MongoDocumentStore struct {
	collection *mongo.Collection
}

// NewMongoDocumentStore creates a document store over the learner_docs
// collection.
func NewMongoDocumentStore(db *database.MongoDB) *MongoDocumentStore {
	return &MongoDocumentStore{
		collection: db.Collection(database.CollectionLearnerDocs),
	}
}

// Get returns the raw stored document for a learner.
func (s *MongoDocumentStore) Get(ctx context.Context, userID string) (*models.StoredDocument, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	var doc models.StoredDocument
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner document: %w", err)
	}

	return &doc, nil
}

// Set writes the full learner document, creating it when absent.
func (s *MongoDocumentStore) Set(ctx context.Context, userID string, doc *models.LearnerDocument) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	doc.UserID = userID
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"userId": userID}, doc, opts); err != nil {
		return fmt.Errorf("failed to set learner document: %w", err)
	}

	return nil
}

// Update merges fields into the stored document. Nil values are pruned
// first so the document never accumulates null fields.
func (s *MongoDocumentStore) Update(ctx context.Context, userID string, fields bson.M) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	set := pruneNilFields(fields)
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = time.Now()

	if _, err := s.collection.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update learner document: %w", err)
	}

	return nil
}

// pruneNilFields returns a copy of fields without nil-valued entries.
func pruneNilFields(fields bson.M) bson.M {
	pruned := bson.M{}
	for k, v := range fields {
		if v == nil {
			continue
		}
		pruned[k] = v
	}
	return pruned
}
