package models

import "time"

// SubmitAnswerRequest is the request body for answering a question.
type SubmitAnswerRequest struct {
	Answer string `json:"answer"`
}

// UpdateLevelRequest is the request body for changing the proficiency tier.
type UpdateLevelRequest struct {
	Level ProficiencyLevel `json:"level"`
}

// QuestionView is one question as presented to the frontend, in
// newest-first order. GapBefore flags a pause of more than 48 hours between
// this question and the one asked before it.
type QuestionView struct {
	Question
	GapBefore bool `json:"gap_before"`
}

// QuestionListResponse is the full newest-first question listing.
// Stale is set when more than 48 hours have passed since the most recent
// question was asked (or the learner has no questions at all is not stale).
type QuestionListResponse struct {
	Questions  []QuestionView   `json:"questions"`
	TotalCount int              `json:"total_count"`
	Level      ProficiencyLevel `json:"level"`
	Stale      bool             `json:"stale"`
}

// ProfileResponse is a summary of the learner document.
type ProfileResponse struct {
	UserID        string           `json:"user_id"`
	Level         ProficiencyLevel `json:"level"`
	QuestionCount int              `json:"question_count"`
	AnsweredCount int              `json:"answered_count"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ActivityResponse is the daily ledger keyed by YYYY-MM-DD date strings.
type ActivityResponse struct {
	Days       map[string]DailyActivity `json:"days"`
	TotalCount int                      `json:"total_count"`
}

// DailyActivityResponse is a single day's ledger entry.
type DailyActivityResponse struct {
	Date     string        `json:"date"`
	Activity DailyActivity `json:"activity"`
}
