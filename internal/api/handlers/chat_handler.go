package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/agent"
	"github.com/infra-agent/backend/internal/storage/models"
	"github.com/infra-agent/backend/pkg/logger"
)

// TranscriptReader serves persisted conversation history.
type TranscriptReader interface {
	GetTranscript(sessionID string, limit int) ([]models.ConversationEntry, error)
}

type ChatHandler struct {
	pipeline    *agent.Pipeline
	transcripts TranscriptReader
}

func NewChatHandler(pipeline *agent.Pipeline, transcripts TranscriptReader) *ChatHandler {
	return &ChatHandler{pipeline: pipeline, transcripts: transcripts}
}

// HandleChat processes one chat message. A missing session id starts a
// fresh session whose id is returned in the response.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse chat request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	response, err := h.pipeline.Process(c.Context(), req.SessionID, req.Message)
	if err != nil {
		logger.Error("Failed to process message",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	return c.JSON(response)
}

// GetHistory returns the persisted transcript for a session, most recent
// first.
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id is required",
		})
	}
	if h.transcripts == nil {
		return c.JSON(fiber.Map{"history": []interface{}{}})
	}

	limit := c.QueryInt("limit", 50)
	entries, err := h.transcripts.GetTranscript(sessionID, limit)
	if err != nil {
		logger.Error("Failed to load transcript",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    entries,
	})
}

// ResetSession destroys a session, abandoning any interview it holds.
func (h *ChatHandler) ResetSession(c *fiber.Ctx) error {
	sessionID := c.Params("sessionID")
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Session id is required",
		})
	}

	h.pipeline.ResetSession(sessionID)
	return c.JSON(fiber.Map{
		"status": "reset",
	})
}
