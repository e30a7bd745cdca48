package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_CasualGreeting(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("hi", Context{})

	assert.Equal(t, IntentCasual, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, 0.8)
	assert.Empty(t, result.Keywords)
}

func TestAnalyze_GreetingOpenerWithoutContentWords(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("hello there", Context{})

	assert.Equal(t, IntentGreeting, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, 0.8, "a pure salutation must clear the small-talk bar")
}

func TestAnalyze_FollowUpLookupGainsConfidence(t *testing.T) {
	a := NewAnalyzer(nil)

	first := a.Analyze("Tell me about docker networking", Context{})
	followUp := a.Analyze("Tell me about docker networking", Context{LastIntent: IntentInformationRequest})

	require.Equal(t, IntentInformationRequest, first.Intent)
	require.Equal(t, IntentInformationRequest, followUp.Intent)
	assert.Greater(t, followUp.Confidence, first.Confidence)
}

func TestAnalyze_CasualSuppressedByDomainKeywords(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("hi, please create a kubernetes cluster for me", Context{})

	assert.Equal(t, IntentInfrastructureCreate, result.Intent)
}

func TestAnalyze_InfrastructureCreate(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("Create a serverless architecture with Lambda and DynamoDB", Context{})

	assert.Equal(t, IntentInfrastructureCreate, result.Intent)
	assert.Greater(t, result.Confidence, 0.5)
	assert.Contains(t, result.Keywords, "serverless")
	assert.Contains(t, result.Keywords, "lambda")
	assert.Contains(t, result.Keywords, "dynamodb")
}

func TestAnalyze_CapabilityQuestion(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("What can you do?", Context{})

	assert.Equal(t, IntentCapabilityQuestion, result.Intent)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestAnalyze_RequirementsAnswerWhenCollectionActive(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("t3.medium", Context{CollectionActive: true})

	assert.Equal(t, IntentRequirementsAnswer, result.Intent)
}

func TestAnalyze_CasualWinsOverRequirementsAnswer(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("thanks", Context{CollectionActive: true})

	assert.Equal(t, IntentCasual, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, 0.8)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("", Context{})

	assert.Equal(t, IntentUnknown, result.Intent)
	assert.Zero(t, result.Confidence)
	assert.Empty(t, result.Keywords)
}

func TestAnalyze_NeverPanicsAndBoundsConfidence(t *testing.T) {
	a := NewAnalyzer(nil)

	inputs := []string{
		"",
		"   ",
		"?!?!?!",
		"hi",
		strings.Repeat("kubernetes ", 200),
		"créate ünïcode døcker",
		"SELECT * FROM users; DROP TABLE users;",
		"create create create",
	}

	for _, input := range inputs {
		result := a.Analyze(input, Context{})
		assert.GreaterOrEqual(t, result.Confidence, 0.0, "input: %q", input)
		assert.LessOrEqual(t, result.Confidence, 1.0, "input: %q", input)
		assert.GreaterOrEqual(t, result.Complexity, 0.0, "input: %q", input)
		assert.LessOrEqual(t, result.Complexity, 1.0, "input: %q", input)
	}
}

func TestAnalyze_KeywordsDeduplicatedInOrder(t *testing.T) {
	a := NewAnalyzer(nil)

	result := a.Analyze("docker and kubernetes and docker again with kubernetes", Context{})

	var dockerCount, firstDocker, firstKube int
	for i, kw := range result.Keywords {
		switch kw {
		case "docker":
			dockerCount++
			if dockerCount == 1 {
				firstDocker = i
			}
		case "kubernetes":
			firstKube = i
		}
	}

	assert.Equal(t, 1, dockerCount)
	assert.Less(t, firstDocker, firstKube)
}

func TestComplexity_MonotoneInKeywordRichness(t *testing.T) {
	a := NewAnalyzer(nil)

	simple := a.Analyze("show s3", Context{})
	rich := a.Analyze(
		"Design a multi-region kubernetes platform with terraform, configure monitoring and logging with prometheus and grafana, and add autoscaling for the api gateway",
		Context{},
	)

	require.Greater(t, rich.Complexity, simple.Complexity)
}
