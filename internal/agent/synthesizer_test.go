package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/internal/planner"
	"github.com/infra-agent/backend/internal/plugin"
	"github.com/infra-agent/backend/internal/session"
	"github.com/infra-agent/backend/internal/storage/models"
)

type stubContributor struct {
	confidence float64
	err        error
}

func (s *stubContributor) Name() string { return "stub" }

func (s *stubContributor) Capability() plugin.Capability {
	return plugin.Capability{Name: "stub", Description: "test contributor"}
}

func (s *stubContributor) Score(analysis.Analysis) float64 { return 1 }

func (s *stubContributor) Respond(context.Context, analysis.Analysis) (*plugin.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &plugin.Response{Text: "plugin advice", Confidence: s.confidence}, nil
}

func newTestSynthesizer(t *testing.T) *Synthesizer {
	t.Helper()
	return NewSynthesizer(planner.New(nil, zap.NewNop()), nil, zap.NewNop())
}

func knowledgeMatch(confidence int) knowledge.Match {
	return knowledge.Match{
		Pattern: &models.Pattern{
			ID:               "test_pattern",
			ResponseTemplate: "knowledge context",
			Confidence:       confidence,
		},
		Overlap: 2,
	}
}

func TestSynthesize_ConfidenceIsMaxOfContributors(t *testing.T) {
	sy := newTestSynthesizer(t)

	resp, outcome := sy.Synthesize(context.Background(), synthInput{
		analysis:   analysis.Analysis{Intent: analysis.IntentInformationRequest, Confidence: 0.5},
		matches:    []knowledge.Match{knowledgeMatch(90)},
		selections: []plugin.Selection{{Plugin: &stubContributor{confidence: 0.6}, Score: 1}},
	})

	assert.InDelta(t, 0.9, resp.Confidence, 0.001, "max of 0.6 and 0.9, never the sum")
	assert.Contains(t, resp.Text, "plugin advice")
	assert.Contains(t, resp.Text, "knowledge context")
	assert.Equal(t, []string{"stub"}, resp.PluginsUsed)
	assert.Equal(t, "test_pattern", outcome.usedPatternID)
}

func TestSynthesize_PluginFailureFallsBackToKnowledge(t *testing.T) {
	sy := newTestSynthesizer(t)

	resp, _ := sy.Synthesize(context.Background(), synthInput{
		analysis:   analysis.Analysis{Intent: analysis.IntentInformationRequest},
		matches:    []knowledge.Match{knowledgeMatch(70)},
		selections: []plugin.Selection{{Plugin: &stubContributor{err: errors.New("boom")}, Score: 1}},
	})

	assert.Equal(t, "knowledge context", resp.Text)
	assert.InDelta(t, 0.7, resp.Confidence, 0.001)
	assert.Empty(t, resp.PluginsUsed)
}

func TestSynthesize_PreferredCloudBreaksKnowledgeTies(t *testing.T) {
	sy := newTestSynthesizer(t)

	generic := knowledge.Match{
		Pattern: &models.Pattern{
			ID:               "generic_storage",
			Keywords:         []string{"storage"},
			ResponseTemplate: "generic storage advice",
			Confidence:       80,
		},
		Overlap: 1,
	}
	azure := knowledge.Match{
		Pattern: &models.Pattern{
			ID:               "azure_storage",
			Keywords:         []string{"storage", "azure"},
			ResponseTemplate: "azure storage advice",
			Confidence:       70,
		},
		Overlap: 1,
	}
	in := synthInput{
		analysis: analysis.Analysis{Intent: analysis.IntentInformationRequest, Confidence: 0.5},
		matches:  []knowledge.Match{generic, azure},
	}

	plain, plainOutcome := sy.Synthesize(context.Background(), in)
	assert.Contains(t, plain.Text, "generic storage advice")
	assert.Equal(t, "generic_storage", plainOutcome.usedPatternID)

	in.prefs = session.Preferences{PreferredCloud: "azure", MessageCount: 4}
	biased, outcome := sy.Synthesize(context.Background(), in)
	assert.Contains(t, biased.Text, "azure storage advice")
	assert.Equal(t, "azure_storage", outcome.usedPatternID)
	assert.Contains(t, biased.Text, "Azure", "phrasing names the preferred cloud")
}

func TestSynthesize_NothingMatchedNeverErrors(t *testing.T) {
	sy := newTestSynthesizer(t)

	resp, _ := sy.Synthesize(context.Background(), synthInput{
		analysis: analysis.Analysis{Intent: analysis.IntentInformationRequest, Confidence: 0.5},
	})

	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.Text)
	assert.LessOrEqual(t, resp.Confidence, 0.3)
}
