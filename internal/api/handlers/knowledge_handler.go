package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/pkg/logger"
)

type KnowledgeHandler struct {
	store    *knowledge.Store
	importer *knowledge.Importer
}

func NewKnowledgeHandler(store *knowledge.Store, importer *knowledge.Importer) *KnowledgeHandler {
	return &KnowledgeHandler{store: store, importer: importer}
}

// ImportFromURL pulls headings and paragraphs from an HTML documentation
// page into new low-confidence patterns for curation.
func (h *KnowledgeHandler) ImportFromURL(c *fiber.Ctx) error {
	var req struct {
		URL      string `json:"url"`
		Category string `json:"category"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse import request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "URL is required",
		})
	}
	if req.Category == "" {
		req.Category = "imported"
	}

	imported, err := h.importer.ImportFromURL(c.Context(), req.URL, req.Category)
	if err != nil {
		logger.Error("Knowledge import failed",
			zap.String("url", req.URL),
			zap.Error(err),
		)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to import from URL",
		})
	}

	return c.JSON(fiber.Map{
		"imported": imported,
		"total":    h.store.Len(),
	})
}

// Stats reports the current pattern inventory.
func (h *KnowledgeHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"patterns": h.store.Len(),
	})
}
