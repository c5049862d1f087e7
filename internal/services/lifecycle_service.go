package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"

	"taalcoach/internal/models"
)

// Operation kinds for the in-flight markers.
const (
	opGenerate    = "generate"
	opAnswer      = "answer"
	opContext     = "context"
	opExplanation = "explanation"
)

// inflightTTL bounds how long an in-flight marker can outlive its request.
// The marker is always released via defer; the TTL is a backstop so a
// crashed request can never leave a permanent lock. It must exceed the
// language model client timeout.
const inflightTTL = 3 * time.Minute

// gapThreshold is the pause between asked timestamps that the UI surfaces
// as a gap in the learner's practice.
const gapThreshold = 48 * time.Hour

// QuestionService orchestrates the question lifecycle: generation, answer
// submission and the two generate-once caches (context conversation and
// question explanation). Each question moves through the states
// none → asked → answered and never reverts.
//
// The in-flight markers are cooperative and process-local: they stop one
// client from double-invoking the same expensive external call for the same
// question, but provide no cross-client mutual exclusion.
type QuestionService struct {
	repo     *LearnerRepository
	ledger   *DailyLedger
	llm      LanguageModel
	usage    *UsageLimiter
	inflight *cache.Cache
	now      func() time.Time
}

// NewQuestionService creates the lifecycle controller. usage may be nil.
func NewQuestionService(repo *LearnerRepository, ledger *DailyLedger, llm LanguageModel, usage *UsageLimiter) *QuestionService {
	return &QuestionService{
		repo:     repo,
		ledger:   ledger,
		llm:      llm,
		usage:    usage,
		inflight: cache.New(inflightTTL, time.Minute),
		now:      time.Now,
	}
}

// acquire takes the in-flight marker for one (operation, id) pair. The
// returned release func must run on every exit path; cache.Add is atomic
// under the cache lock, so concurrent acquirers see exactly one winner.
func (s *QuestionService) acquire(kind, id string) (func(), error) {
	key := kind + ":" + id
	requestID := uuid.NewString()

	if err := s.inflight.Add(key, requestID, inflightTTL); err != nil {
		return nil, ErrOperationInFlight
	}

	log.Printf("🔒 [%s] request %s in flight for %s", kind, requestID, id)
	return func() { s.inflight.Delete(key) }, nil
}

// Generate asks the language service for a new question calibrated to the
// learner's tier and answered history, persists it and records it in the
// daily ledger. Only one generation per learner may be in flight.
func (s *QuestionService) Generate(ctx context.Context, userID string) (*models.Question, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	release, err := s.acquire(opGenerate, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.usage.Allow(ctx, userID); err != nil {
		return nil, err
	}

	doc, err := s.repo.GetDocument(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := answeredHistory(doc.Questions)

	text, err := s.llm.GenerateQuestion(ctx, doc.Level, history)
	if err != nil {
		return nil, fmt.Errorf("question generation failed: %w", err)
	}

	now := s.now()
	question := models.Question{
		// UnixMilli keeps ids unique per learner and correlated with
		// generation order.
		ID:       strconv.FormatInt(now.UnixMilli(), 10),
		Status:   models.StatusAsked,
		Question: text,
		Answers:  []models.Answer{},
		AskedAt:  &now,
	}

	if err := s.repo.AddQuestion(ctx, userID, question); err != nil {
		return nil, fmt.Errorf("failed to persist question: %w", err)
	}

	if err := s.ledger.MarkAsked(ctx, userID, question.ID); err != nil {
		log.Printf("⚠️  Failed to record asked question %s in daily ledger: %v", question.ID, err)
	}

	if m := GetMetrics(); m != nil {
		m.QuestionGenerations.Inc()
	}

	log.Printf("✅ Generated question %s for user %s (level %s)", question.ID, userID, doc.Level)
	return &question, nil
}

// SubmitAnswer validates one free-text attempt and appends it to the
// question's answer history. Guarded: a question with a correct answer
// accepts no further attempts, and only one submission per question may be
// in flight. The first answer transitions the question to answered and
// records it in the daily ledger as part of the same logical operation.
func (s *QuestionService) SubmitAnswer(ctx context.Context, userID, questionID, answerText string) (*models.Question, error) {
	if userID == "" || questionID == "" {
		return nil, fmt.Errorf("user ID and question ID are required")
	}
	if answerText == "" {
		return nil, fmt.Errorf("answer text is required")
	}

	release, err := s.acquire(opAnswer, questionID)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.repo.GetDocument(ctx, userID)
	if err != nil {
		return nil, err
	}

	question, _ := doc.FindQuestion(questionID)
	if question == nil {
		return nil, ErrQuestionNotFound
	}

	if question.HasCorrectAnswer() {
		return nil, ErrAlreadyCorrect
	}

	if err := s.usage.Allow(ctx, userID); err != nil {
		return nil, err
	}

	result, err := s.llm.ValidateAnswer(ctx, question.Question, answerText)
	if err != nil {
		return nil, fmt.Errorf("answer validation failed: %w", err)
	}

	answer := models.Answer{
		Answer:      answerText,
		IsCorrect:   result.Correct,
		Mistakes:    result.Mistakes,
		Explanation: result.Explanation,
		AnsweredAt:  s.now(),
	}

	answers := make([]models.Answer, len(question.Answers), len(question.Answers)+1)
	copy(answers, question.Answers)
	answers = append(answers, answer)

	patch := models.QuestionPatch{Answers: &answers}

	firstAnswer := len(question.Answers) == 0
	if firstAnswer {
		answered := models.StatusAnswered
		patch.Status = &answered
	}

	if err := s.repo.UpdateQuestion(ctx, userID, questionID, patch); err != nil {
		return nil, fmt.Errorf("failed to persist answer: %w", err)
	}

	if firstAnswer {
		if err := s.ledger.MarkAnswered(ctx, userID, questionID); err != nil {
			log.Printf("⚠️  Failed to record answered question %s in daily ledger: %v", questionID, err)
		}
	}

	if m := GetMetrics(); m != nil {
		outcome := "incorrect"
		if result.Correct {
			outcome = "correct"
		}
		m.AnswerSubmissions.WithLabelValues(outcome).Inc()
	}

	log.Printf("✅ Answer recorded for question %s (user %s, correct: %v)", questionID, userID, result.Correct)
	return s.reloadQuestion(ctx, userID, questionID, patch.Apply(*question))
}

// GenerateContext fills the question's context conversation cache. Once
// populated the stored value is returned without an external call.
func (s *QuestionService) GenerateContext(ctx context.Context, userID, questionID string) (string, error) {
	return s.fillCache(ctx, userID, questionID, opContext)
}

// ExplainQuestion fills the question's explanation cache. Once populated
// the stored value is returned without an external call.
func (s *QuestionService) ExplainQuestion(ctx context.Context, userID, questionID string) (string, error) {
	return s.fillCache(ctx, userID, questionID, opExplanation)
}

// fillCache is the shared at-most-once generation path for the context
// conversation and question explanation fields.
func (s *QuestionService) fillCache(ctx context.Context, userID, questionID, kind string) (string, error) {
	if userID == "" || questionID == "" {
		return "", fmt.Errorf("user ID and question ID are required")
	}

	doc, err := s.repo.GetDocument(ctx, userID)
	if err != nil {
		return "", err
	}

	question, _ := doc.FindQuestion(questionID)
	if question == nil {
		return "", ErrQuestionNotFound
	}

	if cached := cachedField(question, kind); cached != "" {
		return cached, nil
	}

	release, err := s.acquire(kind, questionID)
	if err != nil {
		return "", err
	}
	defer release()

	if err := s.usage.Allow(ctx, userID); err != nil {
		return "", err
	}

	var text string
	var patch models.QuestionPatch
	switch kind {
	case opContext:
		if text, err = s.llm.GenerateContext(ctx, question.Question); err == nil {
			patch.ContextConversation = &text
		}
	case opExplanation:
		if text, err = s.llm.ExplainQuestion(ctx, question.Question); err == nil {
			patch.QuestionExplanation = &text
		}
	default:
		return "", fmt.Errorf("unknown cache kind %q", kind)
	}
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", kind, err)
	}

	if err := s.repo.UpdateQuestion(ctx, userID, questionID, patch); err != nil {
		return "", fmt.Errorf("failed to persist %s: %w", kind, err)
	}

	if m := GetMetrics(); m != nil {
		m.CacheFills.WithLabelValues(kind).Inc()
	}

	log.Printf("✅ Cached %s for question %s (user %s)", kind, questionID, userID)
	return text, nil
}

func cachedField(q *models.Question, kind string) string {
	switch kind {
	case opContext:
		return q.ContextConversation
	case opExplanation:
		return q.QuestionExplanation
	}
	return ""
}

// ListQuestions returns the learner's questions newest-first, with gap
// flags for pauses longer than gapThreshold between asked timestamps, and
// a staleness flag for the time since the most recent question.
func (s *QuestionService) ListQuestions(ctx context.Context, userID string) (*models.QuestionListResponse, error) {
	doc, err := s.repo.GetDocument(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Gap flags are computed in creation order, then the list is reversed
	// for presentation.
	gaps := make([]bool, len(doc.Questions))
	for i := 1; i < len(doc.Questions); i++ {
		prev := doc.Questions[i-1].AskedAt
		cur := doc.Questions[i].AskedAt
		if prev != nil && cur != nil && cur.Sub(*prev) > gapThreshold {
			gaps[i] = true
		}
	}

	views := make([]models.QuestionView, 0, len(doc.Questions))
	for i := len(doc.Questions) - 1; i >= 0; i-- {
		views = append(views, models.QuestionView{
			Question:  doc.Questions[i],
			GapBefore: gaps[i],
		})
	}

	stale := false
	if n := len(doc.Questions); n > 0 {
		if latest := doc.Questions[n-1].AskedAt; latest != nil {
			stale = s.now().Sub(*latest) > gapThreshold
		}
	}

	return &models.QuestionListResponse{
		Questions:  views,
		TotalCount: len(views),
		Level:      doc.Level,
		Stale:      stale,
	}, nil
}

// reloadQuestion re-reads the document after a mutation so the caller sees
// exactly what was persisted. Falls back to the locally patched copy when
// the reload races a concurrent write.
func (s *QuestionService) reloadQuestion(ctx context.Context, userID, questionID string, fallback models.Question) (*models.Question, error) {
	doc, err := s.repo.GetDocument(ctx, userID)
	if err == nil {
		if question, _ := doc.FindQuestion(questionID); question != nil {
			return question, nil
		}
	}
	return &fallback, nil
}

// answeredHistory returns the answered questions sorted chronologically by
// the timestamp of each question's latest answer. Questions with no
// timestamped answer sort first via the zero-time default.
func answeredHistory(questions []models.Question) []models.Question {
	history := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if q.Status == models.StatusAnswered {
			history = append(history, q)
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		return history[i].LatestAnswerTime().Before(history[j].LatestAnswerTime())
	})

	return history
}
