package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/storage/models"
	"github.com/infra-agent/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS knowledge_patterns (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		keywords TEXT NOT NULL,
		response_template TEXT NOT NULL,
		confidence INTEGER NOT NULL CHECK (confidence BETWEEN 0 AND 100),
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_patterns_category ON knowledge_patterns(category);
	CREATE INDEX IF NOT EXISTS idx_patterns_usage ON knowledge_patterns(usage_count);

	CREATE TABLE IF NOT EXISTS conversation_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		query_text TEXT NOT NULL,
		response TEXT,
		intent TEXT,
		confidence REAL,
		plugins TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversation_session ON conversation_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_conversation_created ON conversation_log(created_at);

	CREATE TABLE IF NOT EXISTS collection_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		pattern TEXT,
		environment TEXT,
		answers TEXT,
		completeness REAL,
		outcome TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_collections_session ON collection_records(session_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertPattern(p *models.Pattern) error {
	keywordsJSON, _ := json.Marshal(p.Keywords)

	query := `
		INSERT INTO knowledge_patterns (id, category, keywords, response_template, confidence, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category = excluded.category,
			keywords = excluded.keywords,
			response_template = excluded.response_template,
			confidence = excluded.confidence,
			updated_at = excluded.updated_at
	`

	_, err := c.db.Exec(
		query,
		p.ID,
		p.Category,
		string(keywordsJSON),
		p.ResponseTemplate,
		p.Confidence,
		p.UsageCount,
		p.CreatedAt.Unix(),
		p.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}

	logger.Debug("Pattern stored", zap.String("pattern_id", p.ID), zap.String("category", p.Category))
	return nil
}

func (c *Client) ListPatterns() ([]models.Pattern, error) {
	query := `SELECT id, category, keywords, response_template, confidence, usage_count, created_at, updated_at FROM knowledge_patterns`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []models.Pattern
	for rows.Next() {
		var p models.Pattern
		var keywordsJSON string
		var createdAt, updatedAt int64

		err := rows.Scan(&p.ID, &p.Category, &keywordsJSON, &p.ResponseTemplate, &p.Confidence, &p.UsageCount, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(keywordsJSON), &p.Keywords)
		p.CreatedAt = time.Unix(createdAt, 0)
		p.UpdatedAt = time.Unix(updatedAt, 0)
		patterns = append(patterns, p)
	}

	return patterns, nil
}

func (c *Client) IncrementPatternUsage(patternID string) error {
	query := `UPDATE knowledge_patterns SET usage_count = usage_count + 1, updated_at = ? WHERE id = ?`

	_, err := c.db.Exec(query, time.Now().Unix(), patternID)
	if err != nil {
		return fmt.Errorf("failed to increment pattern usage: %w", err)
	}

	return nil
}

func (c *Client) InsertConversationEntry(entry *models.ConversationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	pluginsJSON, _ := json.Marshal(entry.Plugins)

	query := `
		INSERT INTO conversation_log (session_id, query_text, response, intent, confidence, plugins, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		entry.SessionID,
		entry.QueryText,
		entry.Response,
		entry.Intent,
		entry.Confidence,
		string(pluginsJSON),
		entry.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert conversation entry: %w", err)
	}

	return nil
}

func (c *Client) GetTranscript(sessionID string, limit int) ([]models.ConversationEntry, error) {
	query := `
		SELECT id, session_id, query_text, response, intent, confidence, plugins, created_at
		FROM conversation_log
		WHERE session_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	defer rows.Close()

	var entries []models.ConversationEntry
	for rows.Next() {
		var e models.ConversationEntry
		var pluginsJSON string
		var createdAt int64

		err := rows.Scan(&e.ID, &e.SessionID, &e.QueryText, &e.Response, &e.Intent, &e.Confidence, &pluginsJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(pluginsJSON), &e.Plugins)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}

	return entries, nil
}

func (c *Client) InsertCollectionRecord(record *models.CollectionRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	answersJSON, _ := json.Marshal(record.Answers)

	query := `
		INSERT INTO collection_records (session_id, pattern, environment, answers, completeness, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.SessionID,
		record.Pattern,
		record.Environment,
		string(answersJSON),
		record.Completeness,
		record.Outcome,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert collection record: %w", err)
	}

	logger.Info("Collection recorded",
		zap.String("session_id", record.SessionID),
		zap.String("outcome", record.Outcome),
		zap.Float64("completeness", record.Completeness),
	)

	return nil
}
