package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"taalcoach/internal/models"
)

// LearnerRepository owns all reads and writes of learner documents. Every
// read runs the migration engine; every write re-reads, merges and rewrites
// at whole-document granularity.
//
// Writes are last-write-wins with no optimistic concurrency check: two
// concurrent UpdateQuestion calls for different questions on the same
// document can race and the later write silently discards the earlier one's
// questions-array changes. This mirrors the single-writer-per-learner usage
// model and is an accepted, documented limitation rather than something this
// layer tries to mask.
type LearnerRepository struct {
	store    DocumentStore
	migrator *MigrationService
}

// NewLearnerRepository creates a repository over the given store.
func NewLearnerRepository(store DocumentStore, migrator *MigrationService) *LearnerRepository {
	return &LearnerRepository{
		store:    store,
		migrator: migrator,
	}
}

// GetDocument returns the learner's normalized document, creating and
// persisting an empty one on first access. When the read surfaces legacy
// question entries, the upgraded questions array is written back before
// returning so the migration self-heals.
func (r *LearnerRepository) GetDocument(ctx context.Context, userID string) (*models.LearnerDocument, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	stored, err := r.store.Get(ctx, userID)
	if errors.Is(err, ErrDocumentNotFound) {
		return r.createEmptyDocument(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load learner document: %w", err)
	}

	doc, migrated := r.migrator.Normalize(stored)
	if migrated {
		log.Printf("📦 Upgrading legacy question entries for user %s (%d questions)", userID, len(doc.Questions))
		if m := GetMetrics(); m != nil {
			m.LegacyMigrations.Inc()
		}
		if err := r.store.Update(ctx, userID, bson.M{"questions": doc.Questions}); err != nil {
			// The normalized document is still valid; the next read migrates again.
			log.Printf("⚠️  Failed to persist migrated questions for user %s: %v", userID, err)
		}
	}

	return doc, nil
}

// createEmptyDocument persists and returns a fresh document for a learner
// seen for the first time.
func (r *LearnerRepository) createEmptyDocument(ctx context.Context, userID string) (*models.LearnerDocument, error) {
	now := time.Now()
	doc := &models.LearnerDocument{
		UserID:         userID,
		Questions:      []models.Question{},
		DailyQuestions: map[string]models.DailyActivity{},
		Level:          models.LevelA1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := r.store.Set(ctx, userID, doc); err != nil {
		return nil, fmt.Errorf("failed to create learner document: %w", err)
	}

	log.Printf("✅ Created learner document for user %s", userID)
	return doc, nil
}

// UpdateDocument merges the patch into the stored document. Nil patch
// fields are dropped before the write. A missing document is a silent no-op.
func (r *LearnerRepository) UpdateDocument(ctx context.Context, userID string, patch models.DocumentPatch) error {
	fields := bson.M{}
	if patch.Questions != nil {
		fields["questions"] = *patch.Questions
	}
	if patch.DailyQuestions != nil {
		fields["dailyQuestions"] = patch.DailyQuestions
	}
	if patch.Level != nil {
		fields["level"] = *patch.Level
	}

	return r.store.Update(ctx, userID, fields)
}

// AddQuestion appends a question to the learner's sequence. When the
// document cannot be loaded the append is silently skipped; the UI treats
// transient load races as "nothing to update".
func (r *LearnerRepository) AddQuestion(ctx context.Context, userID string, question models.Question) error {
	doc, err := r.GetDocument(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Skipping AddQuestion for user %s: %v", userID, err)
		return nil
	}

	questions := append(doc.Questions, question)
	return r.store.Update(ctx, userID, bson.M{"questions": questions})
}

// UpdateQuestion locates the question by id, merges the patch into a copy
// and rewrites the full questions array. A missing document or unknown
// question id leaves the sequence unchanged.
func (r *LearnerRepository) UpdateQuestion(ctx context.Context, userID, questionID string, patch models.QuestionPatch) error {
	doc, err := r.GetDocument(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Skipping UpdateQuestion for user %s: %v", userID, err)
		return nil
	}

	_, idx := doc.FindQuestion(questionID)
	if idx < 0 {
		return nil
	}

	questions := make([]models.Question, len(doc.Questions))
	copy(questions, doc.Questions)
	questions[idx] = patch.Apply(questions[idx])

	return r.store.Update(ctx, userID, bson.M{"questions": questions})
}
