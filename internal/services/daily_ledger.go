package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"taalcoach/internal/models"
)

// dateKeyLayout is the calendar-day key format of the daily ledger.
const dateKeyLayout = "2006-01-02"

// DailyLedger tracks which question IDs were asked and answered per
// calendar day. Records are purely additive and never pruned.
type DailyLedger struct {
	repo *LearnerRepository
	now  func() time.Time
}

// NewDailyLedger creates a ledger over the given repository.
func NewDailyLedger(repo *LearnerRepository) *DailyLedger {
	return &DailyLedger{
		repo: repo,
		now:  time.Now,
	}
}

// MarkAsked records that a question was asked today.
func (l *DailyLedger) MarkAsked(ctx context.Context, userID, questionID string) error {
	return l.mark(ctx, userID, questionID, false)
}

// MarkAnswered records that a question received its first answer today.
func (l *DailyLedger) MarkAnswered(ctx context.Context, userID, questionID string) error {
	return l.mark(ctx, userID, questionID, true)
}

// mark inserts the question id into today's asked or answered set if not
// already present, then persists the full dailyQuestions map.
func (l *DailyLedger) mark(ctx context.Context, userID, questionID string, answered bool) error {
	if userID == "" || questionID == "" {
		return fmt.Errorf("user ID and question ID are required")
	}

	doc, err := l.repo.GetDocument(ctx, userID)
	if err != nil {
		log.Printf("⚠️  Skipping daily ledger update for user %s: %v", userID, err)
		return nil
	}

	dateKey := l.now().Format(dateKeyLayout)
	record := doc.DailyQuestions[dateKey]

	if answered {
		if containsID(record.AnsweredQuestionIDs, questionID) {
			return nil
		}
		record.AnsweredQuestionIDs = append(record.AnsweredQuestionIDs, questionID)
	} else {
		if containsID(record.AskedQuestionIDs, questionID) {
			return nil
		}
		record.AskedQuestionIDs = append(record.AskedQuestionIDs, questionID)
	}

	doc.DailyQuestions[dateKey] = record

	return l.repo.UpdateDocument(ctx, userID, models.DocumentPatch{
		DailyQuestions: doc.DailyQuestions,
	})
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
