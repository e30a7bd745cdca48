package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/storage/models"
)

// importedConfidence is deliberately low: imported patterns are raw material
// for curation, not trusted answers.
const importedConfidence = 40

// Importer seeds new patterns from an HTML documentation page. Each heading
// plus its first paragraph becomes one low-confidence pattern whose keyword
// signature is derived from the heading.
type Importer struct {
	store      *Store
	httpClient *http.Client
	logger     *zap.Logger
}

func NewImporter(store *Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		store:  store,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (i *Importer) ImportFromURL(ctx context.Context, pageURL, category string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("page fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	imported := 0
	doc.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := strings.TrimSpace(heading.Text())
		body := strings.TrimSpace(heading.NextAllFiltered("p").First().Text())
		if title == "" || body == "" {
			return
		}

		body = truncateTemplate(body)

		keywords := headingKeywords(title)
		if len(keywords) == 0 {
			return
		}

		pattern := models.Pattern{
			ID:               NewPatternID(category, keywords),
			Category:         category,
			Keywords:         keywords,
			ResponseTemplate: body,
			Confidence:       importedConfidence,
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}

		if err := i.store.AddPattern(pattern); err != nil {
			i.logger.Warn("Failed to import pattern",
				zap.String("heading", title),
				zap.Error(err),
			)
			return
		}
		imported++
	})

	i.logger.Info("Documentation imported",
		zap.String("url", pageURL),
		zap.String("category", category),
		zap.Int("patterns", imported),
	)

	return imported, nil
}

// truncateTemplate caps a template at 600 bytes, backing the cut off to a
// rune boundary so the stored text stays valid UTF-8.
func truncateTemplate(body string) string {
	const max = 600
	if len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return strings.TrimSpace(body[:cut])
}

func headingKeywords(title string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,:;()[]\"'")
		if len(word) < 3 || seen[word] {
			continue
		}
		seen[word] = true
		keywords = append(keywords, word)
	}
	return keywords
}
