package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/storage/models"
)

// newTestStore builds a store without the production seeds so tests control
// the full candidate set.
func newTestStore(t *testing.T, patterns ...models.Pattern) *Store {
	t.Helper()

	store := &Store{
		byID:   make(map[string]*entry),
		logger: zap.NewNop(),
	}

	for _, p := range patterns {
		require.NoError(t, store.AddPattern(p))
	}
	return store
}

func testPattern(id string, confidence int, keywords ...string) models.Pattern {
	return models.Pattern{
		ID:               id,
		Category:         "test",
		Keywords:         keywords,
		ResponseTemplate: "template for " + id,
		Confidence:       confidence,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func TestFindBestMatches_EmptyKeywords(t *testing.T) {
	store := newTestStore(t)

	matches := store.FindBestMatches(nil, analysis.IntentInformationRequest, 5)

	assert.Empty(t, matches)
}

func TestFindBestMatches_OrderedByOverlapThenConfidence(t *testing.T) {
	store := newTestStore(t,
		testPattern("low_overlap_high_conf", 95, "docker"),
		testPattern("high_overlap_low_conf", 40, "docker", "kubernetes", "cluster"),
		testPattern("mid_overlap_mid_conf", 70, "docker", "kubernetes"),
	)

	matches := store.FindBestMatches([]string{"docker", "kubernetes", "cluster"}, analysis.IntentInformationRequest, 10)

	require.GreaterOrEqual(t, len(matches), 3)
	assert.Equal(t, "high_overlap_low_conf", matches[0].Pattern.ID)
	assert.Equal(t, "mid_overlap_mid_conf", matches[1].Pattern.ID)
	assert.Equal(t, "low_overlap_high_conf", matches[2].Pattern.ID)
}

func TestFindBestMatches_ConfidenceBreaksOverlapTies(t *testing.T) {
	store := newTestStore(t,
		testPattern("tie_low", 50, "terraform"),
		testPattern("tie_high", 90, "terraform"),
	)

	matches := store.FindBestMatches([]string{"terraform"}, analysis.IntentInformationRequest, 10)

	require.GreaterOrEqual(t, len(matches), 2)
	assert.Equal(t, "tie_high", matches[0].Pattern.ID)
	assert.Equal(t, "tie_low", matches[1].Pattern.ID)
}

func TestFindBestMatches_ExcludesPatternsWithNoSharedKeyword(t *testing.T) {
	store := newTestStore(t,
		testPattern("unrelated", 99, "mainframe", "cobol"),
	)

	matches := store.FindBestMatches([]string{"docker"}, analysis.IntentInformationRequest, 10)

	for _, m := range matches {
		assert.NotEqual(t, "unrelated", m.Pattern.ID)
	}
}

func TestFindBestMatches_PartialMatchesScoreHalf(t *testing.T) {
	store := newTestStore(t,
		testPattern("partial", 50, "autoscaling", "monitoring"),
	)

	// "scaling" is a substring of the pattern keyword "autoscaling" and
	// "monitoring" matches exactly: 0.5 + 1.0.
	matches := store.FindBestMatches([]string{"scaling", "monitoring"}, analysis.IntentInformationRequest, 10)

	var found *Match
	for i := range matches {
		if matches[i].Pattern.ID == "partial" {
			found = &matches[i]
		}
	}
	require.NotNil(t, found)
	assert.InDelta(t, 1.5, found.Overlap, 0.001)
}

func TestFindBestMatches_Idempotent(t *testing.T) {
	store, err := NewStore(nil, nil)
	require.NoError(t, err)

	keywords := []string{"kubernetes", "monitoring", "terraform"}
	first := store.FindBestMatches(keywords, analysis.IntentInformationRequest, 5)
	second := store.FindBestMatches(keywords, analysis.IntentInformationRequest, 5)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Pattern.ID, second[i].Pattern.ID)
		assert.Equal(t, first[i].Overlap, second[i].Overlap)
	}
}

func TestRecordUsage_IncrementsWithoutReranking(t *testing.T) {
	store := newTestStore(t,
		testPattern("used", 50, "terraform"),
		testPattern("unused", 50, "terraform"),
	)

	before := store.FindBestMatches([]string{"terraform"}, analysis.IntentInformationRequest, 10)

	store.RecordUsage("used")
	store.RecordUsage("used")

	assert.Equal(t, int64(2), store.UsageCount("used"))
	assert.Equal(t, int64(0), store.UsageCount("unused"))

	after := store.FindBestMatches([]string{"terraform"}, analysis.IntentInformationRequest, 10)
	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].Pattern.ID, after[i].Pattern.ID)
	}
}

func TestAddPattern_RejectsConfidenceOutsideRange(t *testing.T) {
	store := newTestStore(t)

	err := store.AddPattern(testPattern("too_high", 150, "docker"))
	assert.Error(t, err)

	err = store.AddPattern(testPattern("negative", -1, "docker"))
	assert.Error(t, err)
}

func TestSeedPatterns_ConfidenceInvariant(t *testing.T) {
	for _, p := range SeedPatterns() {
		assert.GreaterOrEqual(t, p.Confidence, 0, "pattern %s", p.ID)
		assert.LessOrEqual(t, p.Confidence, 100, "pattern %s", p.ID)
		assert.NotEmpty(t, p.Keywords, "pattern %s", p.ID)
		assert.NotEmpty(t, p.ResponseTemplate, "pattern %s", p.ID)
	}
}
