package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// QuestionStatus is the lifecycle state of a question.
type QuestionStatus string

const (
	StatusNone     QuestionStatus = "none"
	StatusAsked    QuestionStatus = "asked"
	StatusAnswered QuestionStatus = "answered"
)

// ProficiencyLevel is one of the four CEFR tiers the app supports.
// The generation prompt is calibrated against it; it is never validated
// against what the language service actually produces.
type ProficiencyLevel string

const (
	LevelA1 ProficiencyLevel = "a1" // lowest tier, default for new learners
	LevelA2 ProficiencyLevel = "a2"
	LevelB1 ProficiencyLevel = "b1"
	LevelB2 ProficiencyLevel = "b2"
)

// ValidLevel reports whether l is one of the closed set of tiers.
func ValidLevel(l ProficiencyLevel) bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2:
		return true
	}
	return false
}

// Answer is one submitted attempt at a question. Immutable once appended.
type Answer struct {
	Answer      string    `bson:"answer" json:"answer"`
	IsCorrect   bool      `bson:"isCorrect" json:"is_correct"`
	Mistakes    string    `bson:"mistakes" json:"mistakes"` // free text or literal "none"
	Explanation string    `bson:"explanation" json:"explanation"`
	AnsweredAt  time.Time `bson:"answeredAt" json:"answered_at"`
}

// Question is one asked prompt with its full answer history.
// Answers is append-only; entries are never removed or reordered.
// QuestionExplanation and ContextConversation are generate-once caches:
// once set they are never overwritten.
type Question struct {
	ID                  string         `bson:"id" json:"id"`
	Status              QuestionStatus `bson:"status" json:"status"`
	Question            string         `bson:"question" json:"question"`
	Answers             []Answer       `bson:"answers" json:"answers"`
	QuestionExplanation string         `bson:"questionExplanation,omitempty" json:"question_explanation,omitempty"`
	ContextConversation string         `bson:"contextConversation,omitempty" json:"context_conversation,omitempty"`
	AskedAt             *time.Time     `bson:"askedAt,omitempty" json:"asked_at,omitempty"`
}

// HasCorrectAnswer reports whether any attempt was validated as correct.
// Once true, further answer submissions are rejected.
func (q *Question) HasCorrectAnswer() bool {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return true
		}
	}
	return false
}

// LatestAnswerTime returns the timestamp of the most recent answer, or the
// zero time when the question has no timestamped answer. Used as the sort
// key when building the answered-history prompt context.
func (q *Question) LatestAnswerTime() time.Time {
	var latest time.Time
	for _, a := range q.Answers {
		if a.AnsweredAt.After(latest) {
			latest = a.AnsweredAt
		}
	}
	return latest
}

// RawQuestion is the storage-boundary decode target for a question entry.
// Stored documents may contain a mix of current-shaped entries and legacy V1
// entries (a single optional answer quadruplet instead of an answers array).
// The discriminant is computed exactly once, here, and nowhere else.
type RawQuestion struct {
	ID       string         `bson:"id"`
	Status   QuestionStatus `bson:"status"`
	Question string         `bson:"question"`

	// Answers stays raw so absence, null and wrong-type can be told apart.
	Answers bson.RawValue `bson:"answers"`

	QuestionExplanation string     `bson:"questionExplanation,omitempty"`
	ContextConversation string     `bson:"contextConversation,omitempty"`
	AskedAt             *time.Time `bson:"askedAt,omitempty"`

	// Legacy V1 single-answer fields.
	LegacyAnswer      *string    `bson:"answer,omitempty"`
	LegacyIsCorrect   *bool      `bson:"isCorrect,omitempty"`
	LegacyMistakes    *string    `bson:"mistakes,omitempty"`
	LegacyExplanation *string    `bson:"explanation,omitempty"`
	LegacyAnsweredAt  *time.Time `bson:"answeredAt,omitempty"`
}

// IsLegacy reports whether the entry predates the answers array: the field
// is absent, null, or not an array.
func (r *RawQuestion) IsLegacy() bool {
	return r.Answers.Type != bson.TypeArray
}

// DailyActivity records which question IDs were asked/answered on one
// calendar day. Persisted as plain arrays; deduplication happens by
// membership check at write time, not by set semantics in storage.
type DailyActivity struct {
	AskedQuestionIDs    []string `bson:"askedQuestionIds" json:"asked_question_ids"`
	AnsweredQuestionIDs []string `bson:"answeredQuestionIds" json:"answered_question_ids"`
}

// LearnerDocument is the aggregate root: everything the app knows about one
// learner lives in this single document.
type LearnerDocument struct {
	UserID         string                   `bson:"userId" json:"user_id"`
	Questions      []Question               `bson:"questions" json:"questions"`
	DailyQuestions map[string]DailyActivity `bson:"dailyQuestions" json:"daily_questions"`
	Level          ProficiencyLevel         `bson:"level" json:"level"`
	CreatedAt      time.Time                `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time                `bson:"updatedAt" json:"updated_at"`
}

// FindQuestion returns the question with the given id and its index in
// creation order, or (nil, -1) when not present.
func (d *LearnerDocument) FindQuestion(id string) (*Question, int) {
	for i := range d.Questions {
		if d.Questions[i].ID == id {
			return &d.Questions[i], i
		}
	}
	return nil, -1
}

// StoredDocument is the raw persisted shape of a learner document. Question
// entries stay undecoded so the migration engine can classify each one.
type StoredDocument struct {
	UserID         string                   `bson:"userId"`
	Questions      []bson.Raw               `bson:"questions"`
	DailyQuestions map[string]DailyActivity `bson:"dailyQuestions"`
	Level          ProficiencyLevel         `bson:"level"`
	CreatedAt      time.Time                `bson:"createdAt"`
	UpdatedAt      time.Time                `bson:"updatedAt"`
}

// QuestionPatch is a partial update for one question. Nil fields are left
// untouched; the store never sees null-valued fields.
type QuestionPatch struct {
	Status              *QuestionStatus
	Answers             *[]Answer
	QuestionExplanation *string
	ContextConversation *string
	AskedAt             *time.Time
}

// Apply merges the patch into a copy of q and returns it.
func (p QuestionPatch) Apply(q Question) Question {
	if p.Status != nil {
		q.Status = *p.Status
	}
	if p.Answers != nil {
		q.Answers = *p.Answers
	}
	if p.QuestionExplanation != nil {
		q.QuestionExplanation = *p.QuestionExplanation
	}
	if p.ContextConversation != nil {
		q.ContextConversation = *p.ContextConversation
	}
	if p.AskedAt != nil {
		q.AskedAt = p.AskedAt
	}
	return q
}

// DocumentPatch is a partial update for a learner document. Nil fields are
// dropped before the write.
type DocumentPatch struct {
	Questions      *[]Question
	DailyQuestions map[string]DailyActivity
	Level          *ProficiencyLevel
}

// ValidationResult is what the structured validation service returns for a
// submitted answer.
type ValidationResult struct {
	Correct     bool   `json:"correct"`
	Mistakes    string `json:"mistakes"`
	Explanation string `json:"explanation"`
}
