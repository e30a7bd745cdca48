package models

import "time"

// Pattern is one curated knowledge entry: a keyword signature mapped to a
// response template with a base confidence weight in [0,100].
type Pattern struct {
	ID               string
	Category         string
	Keywords         []string
	ResponseTemplate string
	Confidence       int
	UsageCount       int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ConversationEntry is one persisted (query, response) exchange. Live
// session state is in-memory; the log survives for curation.
type ConversationEntry struct {
	ID         int
	SessionID  string
	QueryText  string
	Response   string
	Intent     string
	Confidence float64
	Plugins    []string
	CreatedAt  time.Time
}

// CollectionRecord summarizes one finished requirements interview.
type CollectionRecord struct {
	ID           int
	SessionID    string
	Pattern      string
	Environment  string
	Answers      map[string]string
	Completeness float64
	Outcome      string
	CreatedAt    time.Time
}
