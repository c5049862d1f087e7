package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"taalcoach/internal/models"
	"taalcoach/internal/services"
)

// QuestionHandler handles HTTP requests for the question lifecycle.
type QuestionHandler struct {
	service *services.QuestionService
}

// NewQuestionHandler creates a new question handler
func NewQuestionHandler(service *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{service: service}
}

// List returns all of the learner's questions, newest first
// GET /api/questions
func (h *QuestionHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	list, err := h.service.ListQuestions(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to list questions for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list questions",
		})
	}

	return c.JSON(list)
}

// Generate creates a new question for the learner
// POST /api/questions/generate
func (h *QuestionHandler) Generate(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	question, err := h.service.Generate(c.Context(), userID)
	if err != nil {
		return questionError(c, "generate question", err)
	}

	return c.Status(fiber.StatusCreated).JSON(question)
}

// SubmitAnswer records one answer attempt for a question
// POST /api/questions/:id/answers
func (h *QuestionHandler) SubmitAnswer(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	questionID := c.Params("id")
	if questionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question ID is required",
		})
	}

	var req models.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Answer is required",
		})
	}

	question, err := h.service.SubmitAnswer(c.Context(), userID, questionID, req.Answer)
	if err != nil {
		return questionError(c, "submit answer", err)
	}

	return c.JSON(question)
}

// Context returns the example conversation for a question, generating it on
// first request
// POST /api/questions/:id/context
func (h *QuestionHandler) Context(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	questionID := c.Params("id")
	if questionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question ID is required",
		})
	}

	text, err := h.service.GenerateContext(c.Context(), userID, questionID)
	if err != nil {
		return questionError(c, "generate context", err)
	}

	return c.JSON(fiber.Map{"context_conversation": text})
}

// Explain returns the explanation for a question, generating it on first
// request
// POST /api/questions/:id/explanation
func (h *QuestionHandler) Explain(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	questionID := c.Params("id")
	if questionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question ID is required",
		})
	}

	text, err := h.service.ExplainQuestion(c.Context(), userID, questionID)
	if err != nil {
		return questionError(c, "generate explanation", err)
	}

	return c.JSON(fiber.Map{"question_explanation": text})
}

// questionError maps lifecycle sentinel errors onto HTTP status codes.
func questionError(c *fiber.Ctx, operation string, err error) error {
	switch {
	case errors.Is(err, services.ErrQuestionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Question not found",
		})
	case errors.Is(err, services.ErrAlreadyCorrect):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Question was already answered correctly",
		})
	case errors.Is(err, services.ErrOperationInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This operation is already in progress",
		})
	case errors.Is(err, services.ErrUsageLimitExceeded):
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Daily language model limit reached",
		})
	case errors.Is(err, services.ErrLanguageService), errors.Is(err, services.ErrEmptyCompletion):
		log.Printf("❌ Language service failure (%s): %v", operation, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Language service unavailable",
		})
	}

	log.Printf("❌ Failed to %s: %v", operation, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}
