package services

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"taalcoach/internal/models"
)

func TestNormalizeUpgradesLegacyQuestion(t *testing.T) {
	answeredAt := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"level":  "a2",
		"questions": []bson.M{
			{
				"id":          "1700000000000",
				"status":      "answered",
				"question":    "Vertaal: goed.",
				"answer":      "goed",
				"isCorrect":   true,
				"mistakes":    "none",
				"explanation": "Correct.",
				"answeredAt":  answeredAt,
			},
		},
	})

	doc, migrated := NewMigrationService().Normalize(stored)
	if !migrated {
		t.Fatal("expected legacy entry to be reported as migrated")
	}
	if len(doc.Questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(doc.Questions))
	}

	q := doc.Questions[0]
	if len(q.Answers) != 1 {
		t.Fatalf("expected 1 upgraded answer, got %d", len(q.Answers))
	}

	a := q.Answers[0]
	if a.Answer != "goed" || !a.IsCorrect || a.Mistakes != "none" || a.Explanation != "Correct." {
		t.Errorf("upgraded answer lost data: %+v", a)
	}
	if !a.AnsweredAt.Equal(answeredAt) {
		t.Errorf("expected answeredAt %v, got %v", answeredAt, a.AnsweredAt)
	}
	if q.ID != "1700000000000" || q.Status != models.StatusAnswered {
		t.Errorf("question identity changed: %+v", q)
	}
}

func TestNormalizeLegacyDefaults(t *testing.T) {
	answeredAt := time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC)

	// Legacy entry with only the answer text and timestamp; the companion
	// fields take their defaults.
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"questions": []bson.M{
			{
				"id":         "q1",
				"status":     "answered",
				"question":   "Vertaal: huis.",
				"answer":     "huis",
				"answeredAt": answeredAt,
			},
		},
	})

	doc, migrated := NewMigrationService().Normalize(stored)
	if !migrated {
		t.Fatal("expected migration")
	}

	a := doc.Questions[0].Answers[0]
	if a.IsCorrect {
		t.Error("expected isCorrect to default to false")
	}
	if a.Mistakes != "none" {
		t.Errorf("expected mistakes to default to %q, got %q", "none", a.Mistakes)
	}
	if a.Explanation != "" {
		t.Errorf("expected empty explanation, got %q", a.Explanation)
	}
}

func TestNormalizeLegacyWithoutAnswer(t *testing.T) {
	// A legacy entry that was asked but never answered upgrades to an empty
	// answers array.
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"questions": []bson.M{
			{"id": "q1", "status": "asked", "question": "Vertaal: fiets."},
		},
	})

	doc, migrated := NewMigrationService().Normalize(stored)
	if !migrated {
		t.Fatal("expected migration for entry without answers array")
	}

	q := doc.Questions[0]
	if q.Answers == nil || len(q.Answers) != 0 {
		t.Errorf("expected empty answers array, got %v", q.Answers)
	}
}

func TestNormalizeNullAnswersIsLegacy(t *testing.T) {
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"questions": []bson.M{
			{"id": "q1", "status": "asked", "question": "Vertaal: brood.", "answers": nil},
		},
	})

	_, migrated := NewMigrationService().Normalize(stored)
	if !migrated {
		t.Fatal("expected null answers field to be treated as legacy")
	}
}

func TestNormalizeCurrentShapeUntouched(t *testing.T) {
	answeredAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"level":  "b1",
		"questions": []bson.M{
			{
				"id":       "q1",
				"status":   "answered",
				"question": "Vertaal: kaas.",
				"answers": []bson.M{
					{"answer": "kaas", "isCorrect": true, "mistakes": "none", "explanation": "Goed.", "answeredAt": answeredAt},
				},
			},
		},
	})

	doc, migrated := NewMigrationService().Normalize(stored)
	if migrated {
		t.Fatal("current-shaped document must not be reported as migrated")
	}
	if doc.Level != models.LevelB1 {
		t.Errorf("expected level b1, got %s", doc.Level)
	}
	if len(doc.Questions[0].Answers) != 1 || doc.Questions[0].Answers[0].Answer != "kaas" {
		t.Errorf("answers changed during normalization: %+v", doc.Questions[0].Answers)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"questions": []bson.M{
			{
				"id":         "q1",
				"status":     "answered",
				"question":   "Vertaal: melk.",
				"answer":     "melk",
				"answeredAt": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	})

	svc := NewMigrationService()
	first, migrated := svc.Normalize(stored)
	if !migrated {
		t.Fatal("expected first pass to migrate")
	}

	// Round-trip the upgraded document through BSON as a write-back would.
	reread := rawStored(t, bson.M{
		"userId":    first.UserID,
		"questions": first.Questions,
	})

	second, migratedAgain := svc.Normalize(reread)
	if migratedAgain {
		t.Fatal("second pass over upgraded document must not migrate again")
	}
	if len(second.Questions[0].Answers) != 1 {
		t.Errorf("upgrade lost answers on round trip: %+v", second.Questions[0])
	}
}

func TestNormalizeUndecodableEntryDegrades(t *testing.T) {
	// An id of the wrong BSON type makes the entry undecodable; it degrades
	// to an empty current-shaped entry instead of failing the read.
	stored := rawStored(t, bson.M{
		"userId": "user-1",
		"questions": []bson.M{
			{"id": 12345, "status": "asked", "question": "Vertaal: water."},
		},
	})

	doc, migrated := NewMigrationService().Normalize(stored)
	if !migrated {
		t.Fatal("degraded entry must trigger a write-back")
	}
	if len(doc.Questions) != 1 {
		t.Fatalf("expected degraded entry to be kept, got %d questions", len(doc.Questions))
	}
	if doc.Questions[0].Answers == nil {
		t.Error("degraded entry must still carry an empty answers array")
	}
}

func TestNormalizeDefaultsLevelAndLedger(t *testing.T) {
	stored := rawStored(t, bson.M{"userId": "user-1"})

	doc, _ := NewMigrationService().Normalize(stored)
	if doc.Level != models.LevelA1 {
		t.Errorf("expected default level a1, got %q", doc.Level)
	}
	if doc.DailyQuestions == nil {
		t.Error("expected dailyQuestions map to be initialized")
	}
}
