package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
	"github.com/infra-agent/backend/pkg/logger"
)

type RequirementsHandler struct {
	catalog  *requirements.Catalog
	sessions *session.Store
}

func NewRequirementsHandler(catalog *requirements.Catalog, sessions *session.Store) *RequirementsHandler {
	return &RequirementsHandler{catalog: catalog, sessions: sessions}
}

var knownPatterns = map[string]requirements.InfraPattern{
	"serverless":    requirements.PatternServerless,
	"containerized": requirements.PatternContainerized,
	"traditional":   requirements.PatternTraditional,
	"multi_cloud":   requirements.PatternMultiCloud,
	"regulated":     requirements.PatternRegulated,
}

// GetCatalog returns the category/item/rule subset a client would be
// interviewed with for the given request type, for form rendering.
func (h *RequirementsHandler) GetCatalog(c *fiber.Ctx) error {
	pattern, ok := knownPatterns[c.Params("requestType")]
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown request type",
		})
	}

	environment := c.Query("environment", "development")
	categories := h.catalog.SelectFor(pattern, environment)

	out := make([]fiber.Map, 0, len(categories))
	for _, cat := range categories {
		items := make([]fiber.Map, 0, len(cat.Items))
		for _, item := range cat.Items {
			items = append(items, fiber.Map{
				"id":       item.ID,
				"question": item.Question,
				"type":     item.Type,
				"options":  item.Options,
				"rules":    item.RuleSpecs,
				"default":  item.Default,
			})
		}
		out = append(out, fiber.Map{
			"name":  cat.Name,
			"items": items,
		})
	}

	return c.JSON(fiber.Map{
		"request_type": pattern,
		"environment":  environment,
		"categories":   out,
	})
}

// SubmitAnswer feeds one answer into a session's active interview without
// going through the chat pipeline, for form-driven clients. The optional
// category and item_id fields pin the answer to the item the client thinks
// is pending; a mismatch means the interview moved on (for example through
// a concurrent chat message) and the answer is rejected rather than
// applied to the wrong item.
func (h *RequirementsHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		Category  string `json:"category"`
		ItemID    string `json:"item_id"`
		Answer    string `json:"answer"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse answer request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id and answer are required",
		})
	}

	sess, ok := h.sessions.Acquire(req.SessionID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Unknown session",
		})
	}
	defer h.sessions.Release(sess)

	sess.Lock()
	defer sess.Unlock()
	sess.Touch()

	col := sess.Collection()
	if col == nil || !col.Active() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "No active requirements collection for this session",
		})
	}

	if item := col.CurrentItem(); item != nil {
		if (req.ItemID != "" && req.ItemID != item.ID) ||
			(req.Category != "" && !strings.EqualFold(req.Category, item.Category)) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":            "Answer targets a different item than the one pending",
				"pending_item_id":  item.ID,
				"pending_category": item.Category,
			})
		}
	}

	result := col.SubmitAnswer(req.Answer)

	out := fiber.Map{
		"valid":                result.Valid,
		"message":              result.Message,
		"used_default":         result.UsedDefault,
		"complete":             result.Complete,
		"next_question":        result.NextQuestion,
		"completeness_percent": result.Completeness * 100,
	}
	if next := col.CurrentItem(); next != nil {
		out["next_item_id"] = next.ID
		out["next_category"] = next.Category
	}
	return c.JSON(out)
}
