package requirements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules_NotEmpty(t *testing.T) {
	rules := ParseRules([]RuleSpec{{Kind: "not_empty"}}, nil)
	require.Len(t, rules, 1)

	ok, _ := rules[0].Validate("something")
	assert.True(t, ok)

	ok, msg := rules[0].Validate("   ")
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestParseRules_NumericRange(t *testing.T) {
	rules := ParseRules([]RuleSpec{
		{Kind: "numeric_range", Params: map[string]interface{}{"min": 1, "max": 10}},
	}, nil)
	require.Len(t, rules, 1)

	ok, _ := rules[0].Validate("5")
	assert.True(t, ok)

	ok, msg := rules[0].Validate("15")
	assert.False(t, ok)
	assert.Contains(t, msg, "10", "message should reference the violated bound")

	ok, msg = rules[0].Validate("0")
	assert.False(t, ok)
	assert.Contains(t, msg, "1", "message should reference the violated bound")

	ok, msg = rules[0].Validate("not a number")
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestParseRules_NumericRangeMinOnly(t *testing.T) {
	rules := ParseRules([]RuleSpec{
		{Kind: "numeric_range", Params: map[string]interface{}{"min": 10}},
	}, nil)
	require.Len(t, rules, 1)

	ok, msg := rules[0].Validate("-5")
	assert.False(t, ok)
	assert.Contains(t, msg, "10")

	ok, _ = rules[0].Validate("10")
	assert.True(t, ok)
}

func TestParseRules_Enum(t *testing.T) {
	rules := ParseRules([]RuleSpec{
		{Kind: "enum", Params: map[string]interface{}{"options": []string{"cpu", "request rate"}}},
	}, nil)
	require.Len(t, rules, 1)

	ok, _ := rules[0].Validate("CPU")
	assert.True(t, ok, "enum membership is case-insensitive")

	ok, msg := rules[0].Validate("memory")
	assert.False(t, ok)
	assert.Contains(t, msg, "cpu")
}

func TestParseRules_Regex(t *testing.T) {
	rules := ParseRules([]RuleSpec{
		{Kind: "regex", Params: map[string]interface{}{"pattern": `^[a-z]{2}-[a-z]+-\d$`}},
	}, nil)
	require.Len(t, rules, 1)

	ok, _ := rules[0].Validate("us-east-1")
	assert.True(t, ok)

	ok, _ = rules[0].Validate("US EAST")
	assert.False(t, ok)
}

func TestParseRules_UnknownKindDegradesToAlwaysPass(t *testing.T) {
	rules := ParseRules([]RuleSpec{{Kind: "quantum_check"}}, nil)
	require.Len(t, rules, 1)

	ok, _ := rules[0].Validate("anything at all")
	assert.True(t, ok)
	assert.Equal(t, "quantum_check", rules[0].Kind())
}

func TestParseRules_MalformedParamsDegradeToAlwaysPass(t *testing.T) {
	specs := []RuleSpec{
		{Kind: "numeric_range"},
		{Kind: "enum"},
		{Kind: "regex", Params: map[string]interface{}{"pattern": "("}},
	}

	rules := ParseRules(specs, nil)
	require.Len(t, rules, 3)

	for i, rule := range rules {
		ok, _ := rule.Validate("whatever")
		assert.True(t, ok, "rule %d should pass after degradation", i)
	}
}

func TestParseRules_ConfiguredMessageWins(t *testing.T) {
	rules := ParseRules([]RuleSpec{
		{Kind: "numeric_range", Params: map[string]interface{}{"min": 10}, ErrorMessage: "budget must be at least 10 USD per month"},
	}, nil)
	require.Len(t, rules, 1)

	ok, msg := rules[0].Validate("3")
	assert.False(t, ok)
	assert.Equal(t, "budget must be at least 10 USD per month", msg)
}
