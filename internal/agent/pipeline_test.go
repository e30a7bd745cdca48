package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/analysis"
	"github.com/infra-agent/backend/internal/knowledge"
	"github.com/infra-agent/backend/internal/planner"
	"github.com/infra-agent/backend/internal/plugin"
	"github.com/infra-agent/backend/internal/requirements"
	"github.com/infra-agent/backend/internal/session"
	"github.com/infra-agent/backend/internal/storage/models"
)

type fakeTranscripts struct {
	mu          sync.Mutex
	entries     []models.ConversationEntry
	records     []models.CollectionRecord
	failEntries bool
}

func (f *fakeTranscripts) InsertConversationEntry(entry *models.ConversationEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEntries {
		return errors.New("disk full")
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeTranscripts) InsertCollectionRecord(record *models.CollectionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *record)
	return nil
}

func newTestPipeline(t *testing.T, transcripts TranscriptStore) *Pipeline {
	t.Helper()
	logger := zap.NewNop()

	store, err := knowledge.NewStore(nil, logger)
	require.NoError(t, err)

	registry := plugin.NewRegistry()
	registry.Register(plugin.NewTerraformPlugin())
	registry.Register(plugin.NewSecurityPlugin())
	registry.Register(plugin.NewCostPlugin())

	return NewPipeline(Deps{
		Analyzer:    analysis.NewAnalyzer(logger),
		Knowledge:   store,
		Router:      plugin.NewRouter(registry, logger),
		Sessions:    session.NewStore(session.Config{}, logger),
		Catalog:     requirements.NewCatalog(logger),
		Synthesizer: NewSynthesizer(planner.New(nil, logger), registry.Capabilities(), logger),
		Transcripts: transcripts,
		Logger:      logger,
	})
}

func TestProcess_GreetingShortCircuits(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "hi")
	require.NoError(t, err)

	assert.Equal(t, "casual", resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.8)
	assert.NotEmpty(t, resp.Text)
	assert.Empty(t, resp.PluginsUsed)
	assert.Nil(t, resp.Collection)
}

func TestProcess_KnowledgeQuestionGetsAnswer(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "What is Kubernetes?")
	require.NoError(t, err)

	assert.Equal(t, "information_request", resp.Intent)
	assert.NotEmpty(t, resp.Text)
	assert.Greater(t, resp.Confidence, 0.5)
}

func TestProcess_NothingMatchedGivesClarifyingPrompt(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "frobnicate the widget zorps")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Text)
	assert.LessOrEqual(t, resp.Confidence, 0.5)
}

func TestProcess_CapabilityQuestionListsPlugins(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "What can you do?")
	require.NoError(t, err)

	assert.Equal(t, "capability_question", resp.Intent)
	assert.Contains(t, resp.Text, "terraform")
	assert.Contains(t, resp.Text, "security")
	assert.Contains(t, resp.Text, "cost")
}

func TestProcess_PreferencesPersonalizeReplies(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Process(ctx, "veteran", "Tell me about aws lambda functions")
		require.NoError(t, err)
	}

	seasoned, err := p.Process(ctx, "veteran", "What is Kubernetes?")
	require.NoError(t, err)
	fresh, err := p.Process(ctx, "newcomer", "What is Kubernetes?")
	require.NoError(t, err)

	assert.NotEqual(t, fresh.Text, seasoned.Text, "accumulated history must shape the reply")
	assert.Contains(t, seasoned.Text, "AWS", "phrasing leans toward the preferred cloud")
	assert.NotContains(t, fresh.Text, "mostly been working with")
}

func TestProcess_ReturningUserGetsDifferentGreeting(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	first, err := p.Process(ctx, "s1", "hi")
	require.NoError(t, err)
	_, err = p.Process(ctx, "s1", "What is Terraform?")
	require.NoError(t, err)
	again, err := p.Process(ctx, "s1", "hi")
	require.NoError(t, err)

	assert.NotEqual(t, first.Text, again.Text)
	assert.Contains(t, again.Text, "Welcome back")
}

func TestProcess_GreetingOpenerIsNotAClarifyingPrompt(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "hello there")
	require.NoError(t, err)

	assert.Equal(t, "greeting", resp.Intent)
	assert.NotContains(t, resp.Text, "not sure I follow")
	assert.Contains(t, resp.Text, "Hello")
}

func TestProcess_CreateStartsInterview(t *testing.T) {
	p := newTestPipeline(t, nil)

	resp, err := p.Process(context.Background(), "s1", "Create a serverless API with Lambda and DynamoDB")
	require.NoError(t, err)

	require.NotNil(t, resp.Collection)
	assert.Equal(t, "asking", resp.Collection.State)
	assert.NotEmpty(t, resp.Collection.Question)
	assert.Zero(t, resp.Collection.CompletenessPercent)
	assert.Contains(t, resp.Text, resp.Collection.Question)
}

func TestProcess_CasualMidInterviewKeepsPosition(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	start, err := p.Process(ctx, "s1", "Create a serverless API with Lambda and DynamoDB")
	require.NoError(t, err)
	require.NotNil(t, start.Collection)
	question := start.Collection.Question

	resp, err := p.Process(ctx, "s1", "thanks!")
	require.NoError(t, err)

	assert.Equal(t, "casual", resp.Intent)
	assert.GreaterOrEqual(t, resp.Confidence, 0.8)
	require.NotNil(t, resp.Collection, "interview stays active through small talk")
	assert.Equal(t, question, resp.Collection.Question, "interview position untouched")
	assert.Equal(t, start.Collection.CompletenessPercent, resp.Collection.CompletenessPercent)

	next, err := p.Process(ctx, "s1", "use default")
	require.NoError(t, err)
	require.NotNil(t, next.Collection)
	assert.Greater(t, next.Collection.CompletenessPercent, resp.Collection.CompletenessPercent)
}

func TestProcess_InterviewRunsToCompletion(t *testing.T) {
	transcripts := &fakeTranscripts{}
	p := newTestPipeline(t, transcripts)
	ctx := context.Background()

	resp, err := p.Process(ctx, "s1", "Build a serverless data pipeline with Lambda")
	require.NoError(t, err)
	require.NotNil(t, resp.Collection)

	for i := 0; i < 30 && resp.Plan == nil; i++ {
		resp, err = p.Process(ctx, "s1", "use default")
		require.NoError(t, err)
	}

	require.NotNil(t, resp.Plan, "interview should complete within the item count")
	assert.Equal(t, requirements.PatternServerless, resp.Plan.Pattern)
	assert.InDelta(t, 100, resp.Collection.CompletenessPercent, 0.001)
	assert.Contains(t, resp.Text, "Deployment plan")

	transcripts.mu.Lock()
	defer transcripts.mu.Unlock()
	require.Len(t, transcripts.records, 1)
	assert.Equal(t, "complete", transcripts.records[0].Outcome)
	assert.Equal(t, "serverless", transcripts.records[0].Pattern)
	assert.NotEmpty(t, transcripts.records[0].Answers)
}

func TestProcess_BudgetValidationKeepsPosition(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	resp, err := p.Process(ctx, "s1", "Deploy infrastructure across aws and azure")
	require.NoError(t, err)
	require.NotNil(t, resp.Collection)

	for i := 0; i < 30 && !strings.Contains(resp.Collection.Question, "budget"); i++ {
		resp, err = p.Process(ctx, "s1", "use default")
		require.NoError(t, err)
		require.NotNil(t, resp.Collection)
	}
	require.Contains(t, resp.Collection.Question, "budget")
	before := resp.Collection.CompletenessPercent

	resp, err = p.Process(ctx, "s1", "-5")
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "10", "rejection names the violated bound")
	require.NotNil(t, resp.Collection)
	assert.Contains(t, resp.Collection.Question, "budget", "no advance on failure")
	assert.Equal(t, before, resp.Collection.CompletenessPercent)

	resp, err = p.Process(ctx, "s1", "250")
	require.NoError(t, err)
	require.NotNil(t, resp.Collection)
	assert.Greater(t, resp.Collection.CompletenessPercent, before)
}

func TestProcess_AbandonEndsInterview(t *testing.T) {
	transcripts := &fakeTranscripts{}
	p := newTestPipeline(t, transcripts)
	ctx := context.Background()

	_, err := p.Process(ctx, "s1", "Create a serverless API with Lambda")
	require.NoError(t, err)

	resp, err := p.Process(ctx, "s1", "cancel")
	require.NoError(t, err)
	require.NotNil(t, resp.Collection)
	assert.Equal(t, "abandoned", resp.Collection.State)

	transcripts.mu.Lock()
	require.Len(t, transcripts.records, 1)
	assert.Equal(t, "abandoned", transcripts.records[0].Outcome)
	transcripts.mu.Unlock()

	// The next knowledge question is answered normally, not as an interview
	// answer.
	resp, err = p.Process(ctx, "s1", "What is Terraform?")
	require.NoError(t, err)
	assert.Nil(t, resp.Collection)
}

func TestProcess_SessionsAreIsolated(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	_, err := p.Process(ctx, "interviewing", "Create a serverless API with Lambda")
	require.NoError(t, err)

	resp, err := p.Process(ctx, "browsing", "What is Kubernetes?")
	require.NoError(t, err)

	assert.Nil(t, resp.Collection, "interview in one session must not leak into another")
	assert.Equal(t, "information_request", resp.Intent)
}

func TestProcess_StorageFailureDegradesToRetryResponse(t *testing.T) {
	transcripts := &fakeTranscripts{failEntries: true}
	p := newTestPipeline(t, transcripts)

	resp, err := p.Process(context.Background(), "s1", "What is Kubernetes?")
	require.NoError(t, err, "storage failure must not surface as a request error")
	assert.Contains(t, resp.Text, "try again")
	assert.Zero(t, resp.Confidence)
}

func TestProcess_EmptySessionIDRejected(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.Process(context.Background(), "  ", "hello there")
	assert.ErrorIs(t, err, ErrEmptySessionID)
}

func TestProcess_TranscriptRecordsEveryExchange(t *testing.T) {
	transcripts := &fakeTranscripts{}
	p := newTestPipeline(t, transcripts)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Process(ctx, "s1", fmt.Sprintf("What is Kubernetes? (%d)", i))
		require.NoError(t, err)
	}

	transcripts.mu.Lock()
	defer transcripts.mu.Unlock()
	require.Len(t, transcripts.entries, 3)
	for _, e := range transcripts.entries {
		assert.Equal(t, "s1", e.SessionID)
		assert.NotEmpty(t, e.Response)
	}
}
