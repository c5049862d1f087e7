package services

import (
	"log"

	"go.mongodb.org/mongo-driver/bson"

	"taalcoach/internal/models"
)

// MigrationService normalizes stored learner documents into the current
// shape. Historic documents carry legacy V1 question entries with a single
// optional answer quadruplet instead of an answers array; those are upgraded
// losslessly on every read. Migration never fails: entries that cannot be
// decoded degrade to empty-answers current-shaped entries.
type MigrationService struct{}

// NewMigrationService creates a new migration service.
func NewMigrationService() *MigrationService {
	return &MigrationService{}
}

// Normalize converts a raw stored document into the current shape and
// reports whether any legacy entry was upgraded. When migrated is true the
// caller is expected to write the upgraded questions array back so the next
// read finds nothing to do.
func (m *MigrationService) Normalize(stored *models.StoredDocument) (doc *models.LearnerDocument, migrated bool) {
	doc = &models.LearnerDocument{
		UserID:         stored.UserID,
		Questions:      make([]models.Question, 0, len(stored.Questions)),
		DailyQuestions: stored.DailyQuestions,
		Level:          stored.Level,
		CreatedAt:      stored.CreatedAt,
		UpdatedAt:      stored.UpdatedAt,
	}
	if doc.DailyQuestions == nil {
		doc.DailyQuestions = map[string]models.DailyActivity{}
	}
	if doc.Level == "" {
		doc.Level = models.LevelA1
	}

	for _, raw := range stored.Questions {
		question, wasLegacy := m.normalizeQuestion(raw)
		doc.Questions = append(doc.Questions, question)
		if wasLegacy {
			migrated = true
		}
	}

	return doc, migrated
}

// normalizeQuestion decodes one stored question entry and upgrades it when
// it has the legacy shape.
func (m *MigrationService) normalizeQuestion(raw bson.Raw) (models.Question, bool) {
	var rq models.RawQuestion
	if err := bson.Unmarshal(raw, &rq); err != nil {
		// Unparseable entry: keep whatever identity survived and degrade the
		// rest to an empty-answers current-shaped entry.
		log.Printf("⚠️  Failed to decode stored question entry, degrading: %v", err)
		return models.Question{Answers: []models.Answer{}}, true
	}

	if !rq.IsLegacy() {
		return m.currentQuestion(&rq, raw), false
	}

	return m.upgradeLegacyQuestion(&rq), true
}

// currentQuestion finishes decoding an entry that already has an answers
// array.
func (m *MigrationService) currentQuestion(rq *models.RawQuestion, raw bson.Raw) models.Question {
	q := models.Question{
		ID:                  rq.ID,
		Status:              rq.Status,
		Question:            rq.Question,
		Answers:             []models.Answer{},
		QuestionExplanation: rq.QuestionExplanation,
		ContextConversation: rq.ContextConversation,
		AskedAt:             rq.AskedAt,
	}

	var answers []models.Answer
	if err := rq.Answers.Unmarshal(&answers); err != nil {
		log.Printf("⚠️  Failed to decode answers for question %s, keeping entry with no answers: %v", rq.ID, err)
		return q
	}
	if answers != nil {
		q.Answers = answers
	}

	return q
}

// upgradeLegacyQuestion converts a legacy V1 entry into the current shape.
// When the legacy answer and its timestamp are both present, they become the
// single entry of the new answers array; missing companion fields take their
// documented defaults. Otherwise the answers array starts empty. Optional
// fields are copied only if present so the store never sees null fields.
func (m *MigrationService) upgradeLegacyQuestion(rq *models.RawQuestion) models.Question {
	q := models.Question{
		ID:                  rq.ID,
		Status:              rq.Status,
		Question:            rq.Question,
		Answers:             []models.Answer{},
		QuestionExplanation: rq.QuestionExplanation,
		ContextConversation: rq.ContextConversation,
		AskedAt:             rq.AskedAt,
	}

	if rq.LegacyAnswer != nil && rq.LegacyAnsweredAt != nil {
		answer := models.Answer{
			Answer:     *rq.LegacyAnswer,
			AnsweredAt: *rq.LegacyAnsweredAt,
			Mistakes:   "none",
		}
		if rq.LegacyIsCorrect != nil {
			answer.IsCorrect = *rq.LegacyIsCorrect
		}
		if rq.LegacyMistakes != nil {
			answer.Mistakes = *rq.LegacyMistakes
		}
		if rq.LegacyExplanation != nil {
			answer.Explanation = *rq.LegacyExplanation
		}
		q.Answers = append(q.Answers, answer)
	}

	return q
}
