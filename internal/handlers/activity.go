package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"taalcoach/internal/models"
	"taalcoach/internal/services"
)

// ActivityHandler serves the daily practice ledger.
type ActivityHandler struct {
	repo *services.LearnerRepository
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(repo *services.LearnerRepository) *ActivityHandler {
	return &ActivityHandler{repo: repo}
}

// List returns the full daily ledger keyed by date
// GET /api/activity
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	doc, err := h.repo.GetDocument(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load activity for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load activity",
		})
	}

	return c.JSON(models.ActivityResponse{
		Days:       doc.DailyQuestions,
		TotalCount: len(doc.DailyQuestions),
	})
}

// Today returns the ledger entry for the current date
// GET /api/activity/today
func (h *ActivityHandler) Today(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	doc, err := h.repo.GetDocument(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load activity for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load activity",
		})
	}

	date := time.Now().Format("2006-01-02")
	activity := doc.DailyQuestions[date]
	if activity.AskedQuestionIDs == nil {
		activity.AskedQuestionIDs = []string{}
	}
	if activity.AnsweredQuestionIDs == nil {
		activity.AnsweredQuestionIDs = []string{}
	}

	return c.JSON(models.DailyActivityResponse{
		Date:     date,
		Activity: activity,
	})
}
