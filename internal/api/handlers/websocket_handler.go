package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/agent"
	"github.com/infra-agent/backend/pkg/logger"
)

type WebSocketHandler struct {
	pipeline *agent.Pipeline
}

func NewWebSocketHandler(pipeline *agent.Pipeline) *WebSocketHandler {
	return &WebSocketHandler{pipeline: pipeline}
}

// HandleConnection runs one chat session over a websocket. Replies are
// streamed word by word followed by a complete frame with the metadata.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	// One connection, one session unless the client names its own.
	defaultSessionID := uuid.NewString()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			SessionID string `json:"session_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "chat" {
			continue
		}

		sessionID := msg.SessionID
		if sessionID == "" {
			sessionID = defaultSessionID
		}

		if err := h.streamResponse(c, sessionID, msg.Content); err != nil {
			logger.Error("Failed to stream response",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			h.sendError(c, "Failed to process message")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, sessionID, message string) error {
	response, err := h.pipeline.Process(context.Background(), sessionID, message)
	if err != nil {
		return err
	}

	words := splitIntoWords(response.Text)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}
		if err := h.sendChunk(c, chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":             "complete",
		"session_id":       response.SessionID,
		"intent":           response.Intent,
		"confidence":       response.Confidence,
		"plugins_used":     response.PluginsUsed,
		"collection_state": response.Collection,
		"plan":             response.Plan,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    "chunk",
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	_ = c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
