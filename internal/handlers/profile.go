package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"taalcoach/internal/models"
	"taalcoach/internal/services"
)

// ProfileHandler handles learner profile requests.
type ProfileHandler struct {
	repo *services.LearnerRepository
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(repo *services.LearnerRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// Get returns a summary of the learner's document
// GET /api/profile
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	doc, err := h.repo.GetDocument(c.Context(), userID)
	if err != nil {
		log.Printf("❌ Failed to load profile for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load profile",
		})
	}

	answered := 0
	for _, q := range doc.Questions {
		if q.Status == models.StatusAnswered {
			answered++
		}
	}

	return c.JSON(models.ProfileResponse{
		UserID:        doc.UserID,
		Level:         doc.Level,
		QuestionCount: len(doc.Questions),
		AnsweredCount: answered,
		CreatedAt:     doc.CreatedAt,
	})
}

// UpdateLevel changes the learner's proficiency tier
// PUT /api/profile/level
func (h *ProfileHandler) UpdateLevel(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}

	var req models.UpdateLevelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !models.ValidLevel(req.Level) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Level must be one of: a1, a2, b1, b2",
		})
	}

	if err := h.repo.UpdateDocument(c.Context(), userID, models.DocumentPatch{Level: &req.Level}); err != nil {
		log.Printf("❌ Failed to update level for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update level",
		})
	}

	log.Printf("✅ User %s switched to level %s", userID, req.Level)
	return c.JSON(fiber.Map{"level": req.Level})
}
