package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"taalcoach/internal/models"
)

// fakeDocumentStore keeps documents as marshalled BSON so the migration
// engine sees exactly the bytes a real collection would hand back.
type fakeDocumentStore struct {
	docs        map[string][]byte
	setCalls    int
	updateCalls int
	failUpdate  bool
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string][]byte{}}
}

// seed stores an arbitrary document shape, legacy shapes included.
func (f *fakeDocumentStore) seed(t *testing.T, userID string, doc interface{}) {
	t.Helper()
	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal seed document: %v", err)
	}
	f.docs[userID] = data
}

func (f *fakeDocumentStore) Get(ctx context.Context, userID string) (*models.StoredDocument, error) {
	data, ok := f.docs[userID]
	if !ok {
		return nil, ErrDocumentNotFound
	}

	var doc models.StoredDocument
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (f *fakeDocumentStore) Set(ctx context.Context, userID string, doc *models.LearnerDocument) error {
	f.setCalls++
	doc.UserID = userID

	data, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	f.docs[userID] = data
	return nil
}

func (f *fakeDocumentStore) Update(ctx context.Context, userID string, fields bson.M) error {
	f.updateCalls++
	if f.failUpdate {
		return errors.New("store unavailable")
	}

	data, ok := f.docs[userID]
	if !ok {
		return nil
	}

	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}

	for k, v := range fields {
		if v == nil {
			continue
		}
		doc[k] = v
	}

	updated, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	f.docs[userID] = updated
	return nil
}

// fakeLanguageModel returns canned results and counts invocations.
type fakeLanguageModel struct {
	questionText string
	contextText  string
	explainText  string
	validation   models.ValidationResult

	generateErr error
	validateErr error

	generateCalls int
	validateCalls int
	contextCalls  int
	explainCalls  int

	lastLevel   models.ProficiencyLevel
	lastHistory []models.Question
	lastAnswer  string
}

func (f *fakeLanguageModel) GenerateQuestion(ctx context.Context, level models.ProficiencyLevel, history []models.Question) (string, error) {
	f.generateCalls++
	f.lastLevel = level
	f.lastHistory = history
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.questionText, nil
}

func (f *fakeLanguageModel) ValidateAnswer(ctx context.Context, question, answer string) (*models.ValidationResult, error) {
	f.validateCalls++
	f.lastAnswer = answer
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	result := f.validation
	return &result, nil
}

func (f *fakeLanguageModel) GenerateContext(ctx context.Context, question string) (string, error) {
	f.contextCalls++
	return f.contextText, nil
}

func (f *fakeLanguageModel) ExplainQuestion(ctx context.Context, question string) (string, error) {
	f.explainCalls++
	return f.explainText, nil
}

// newTestLifecycle wires a question service over fakes with a fixed clock.
func newTestLifecycle(now time.Time) (*QuestionService, *fakeDocumentStore, *fakeLanguageModel) {
	store := newFakeDocumentStore()
	repo := NewLearnerRepository(store, NewMigrationService())
	ledger := NewDailyLedger(repo)
	ledger.now = func() time.Time { return now }

	llm := &fakeLanguageModel{
		questionText: "Vertaal: ik ga naar huis.",
		contextText:  "A: Waar ga je heen?\nB: Ik ga naar huis.",
		explainText:  "Translate the sentence into Dutch.",
		validation:   models.ValidationResult{Correct: true, Mistakes: "none", Explanation: "Goed gedaan."},
	}

	svc := NewQuestionService(repo, ledger, llm, nil)
	svc.now = func() time.Time { return now }

	return svc, store, llm
}

// rawStored marshals an arbitrary document shape and decodes it as the
// store would return it.
func rawStored(t *testing.T, doc bson.M) *models.StoredDocument {
	t.Helper()
	data, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("failed to marshal document: %v", err)
	}

	var stored models.StoredDocument
	if err := bson.Unmarshal(data, &stored); err != nil {
		t.Fatalf("failed to unmarshal stored document: %v", err)
	}
	return &stored
}
