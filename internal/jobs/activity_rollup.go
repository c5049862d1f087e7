package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taalcoach/internal/database"
)

// ActivityRollupJob summarizes the previous day's practice across all
// learners: how many learners were active and how many questions were asked
// and answered. The numbers land in the log for ops; the per-learner ledger
// itself stays untouched.
type ActivityRollupJob struct {
	mongoDB    *database.MongoDB
	collection *mongo.Collection
	lastRun    time.Time
}

// NewActivityRollupJob creates a new activity rollup job.
func NewActivityRollupJob(mongoDB *database.MongoDB) *ActivityRollupJob {
	var collection *mongo.Collection
	if mongoDB != nil {
		collection = mongoDB.Collection(database.CollectionLearnerDocs)
	}
	return &ActivityRollupJob{
		mongoDB:    mongoDB,
		collection: collection,
	}
}

// Run aggregates yesterday's ledger entries.
func (j *ActivityRollupJob) Run(ctx context.Context) error {
	j.lastRun = time.Now()

	if j.collection == nil {
		log.Println("⚠️ [ACTIVITY-ROLLUP] Skipped: MongoDB not available")
		return nil
	}

	date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	field := "dailyQuestions." + date

	filter := bson.M{field: bson.M{"$exists": true}}
	projection := bson.M{"userId": 1, field: 1}

	cursor, err := j.collection.Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return fmt.Errorf("failed to query ledger entries for %s: %w", date, err)
	}
	defer cursor.Close(ctx)

	var learners, asked, answered int
	for cursor.Next(ctx) {
		var doc struct {
			UserID         string `bson:"userId"`
			DailyQuestions map[string]struct {
				AskedQuestionIDs    []string `bson:"askedQuestionIds"`
				AnsweredQuestionIDs []string `bson:"answeredQuestionIds"`
			} `bson:"dailyQuestions"`
		}
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("⚠️ [ACTIVITY-ROLLUP] Skipping undecodable document: %v", err)
			continue
		}

		day, ok := doc.DailyQuestions[date]
		if !ok {
			continue
		}

		learners++
		asked += len(day.AskedQuestionIDs)
		answered += len(day.AnsweredQuestionIDs)
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("cursor error during rollup for %s: %w", date, err)
	}

	log.Printf("📊 [ACTIVITY-ROLLUP] %s: %d active learners, %d questions asked, %d answered",
		date, learners, asked, answered)

	return nil
}

// GetNextRunTime returns the next 00:10 UTC, shortly after the ledger day
// has closed.
func (j *ActivityRollupJob) GetNextRunTime() time.Time {
	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 10, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
