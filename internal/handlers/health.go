package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"taalcoach/internal/database"
	"taalcoach/internal/services"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.MongoDB
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(db *database.MongoDB, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	mongo := "up"
	if err := h.db.Ping(ctx); err != nil {
		status = "degraded"
		mongo = "down"
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "up"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "down"
		}
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"mongodb":   mongo,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
