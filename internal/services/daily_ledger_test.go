package services

import (
	"context"
	"testing"
	"time"
)

func newTestLedger(now time.Time) (*DailyLedger, *LearnerRepository) {
	store := newFakeDocumentStore()
	repo := NewLearnerRepository(store, NewMigrationService())
	ledger := NewDailyLedger(repo)
	ledger.now = func() time.Time { return now }
	return ledger, repo
}

func TestMarkAskedRecordsUnderDateKey(t *testing.T) {
	now := time.Date(2025, 6, 15, 23, 50, 0, 0, time.UTC)
	ledger, repo := newTestLedger(now)
	ctx := context.Background()

	if err := ledger.MarkAsked(ctx, "user-1", "q1"); err != nil {
		t.Fatalf("MarkAsked failed: %v", err)
	}

	doc, _ := repo.GetDocument(ctx, "user-1")
	day, ok := doc.DailyQuestions["2025-06-15"]
	if !ok {
		t.Fatalf("expected entry under 2025-06-15, got %v", doc.DailyQuestions)
	}
	if len(day.AskedQuestionIDs) != 1 || day.AskedQuestionIDs[0] != "q1" {
		t.Errorf("asked ids wrong: %v", day.AskedQuestionIDs)
	}
	if len(day.AnsweredQuestionIDs) != 0 {
		t.Errorf("answered ids must be empty: %v", day.AnsweredQuestionIDs)
	}
}

func TestMarkAskedDeduplicates(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, repo := newTestLedger(now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := ledger.MarkAsked(ctx, "user-1", "q1"); err != nil {
			t.Fatalf("MarkAsked failed: %v", err)
		}
	}

	doc, _ := repo.GetDocument(ctx, "user-1")
	if got := len(doc.DailyQuestions["2025-06-15"].AskedQuestionIDs); got != 1 {
		t.Errorf("expected 1 asked id after duplicate marks, got %d", got)
	}
}

func TestMarkAnsweredSeparateFromAsked(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	ledger, repo := newTestLedger(now)
	ctx := context.Background()

	ledger.MarkAsked(ctx, "user-1", "q1")
	ledger.MarkAnswered(ctx, "user-1", "q1")
	ledger.MarkAnswered(ctx, "user-1", "q1")

	doc, _ := repo.GetDocument(ctx, "user-1")
	day := doc.DailyQuestions["2025-06-15"]
	if len(day.AskedQuestionIDs) != 1 || len(day.AnsweredQuestionIDs) != 1 {
		t.Errorf("expected one id in each list, got asked=%v answered=%v",
			day.AskedQuestionIDs, day.AnsweredQuestionIDs)
	}
}

func TestLedgerSplitsAcrossDays(t *testing.T) {
	ledger, repo := newTestLedger(time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()

	ledger.MarkAsked(ctx, "user-1", "q1")

	// A minute later it is the next calendar day.
	ledger.now = func() time.Time { return time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC) }
	ledger.MarkAnswered(ctx, "user-1", "q1")

	doc, _ := repo.GetDocument(ctx, "user-1")
	if len(doc.DailyQuestions["2025-06-15"].AskedQuestionIDs) != 1 {
		t.Errorf("asked mark missing from first day: %v", doc.DailyQuestions)
	}
	if len(doc.DailyQuestions["2025-06-16"].AnsweredQuestionIDs) != 1 {
		t.Errorf("answered mark missing from second day: %v", doc.DailyQuestions)
	}
}

func TestLedgerRequiresIDs(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	if err := ledger.MarkAsked(context.Background(), "", "q1"); err == nil {
		t.Error("expected error for empty user id")
	}
	if err := ledger.MarkAsked(context.Background(), "user-1", ""); err == nil {
		t.Error("expected error for empty question id")
	}
}
