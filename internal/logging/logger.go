package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithLearner returns a logger with the learner identity attached.
// Use this for all logging within a learner-scoped operation.
func WithLearner(userID string) *slog.Logger {
	return slog.With("user_id", userID)
}

// WithOperation returns a logger scoped to one lifecycle operation on one
// question (generate, answer, context, explanation).
func WithOperation(logger *slog.Logger, requestID, questionID, operation string) *slog.Logger {
	return logger.With(
		"request_id", requestID,
		"question_id", questionID,
		"operation", operation,
	)
}
