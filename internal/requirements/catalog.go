package requirements

import (
	"strings"

	"go.uber.org/zap"
)

// AnswerType tells the rendering collaborator which input widget fits.
type AnswerType string

const (
	AnswerText     AnswerType = "text"
	AnswerNumber   AnswerType = "number"
	AnswerDropdown AnswerType = "dropdown"
	AnswerTextarea AnswerType = "textarea"
)

// InfraPattern is the coarse shape of the requested infrastructure,
// inferred from analysis keywords. It drives category selection.
type InfraPattern string

const (
	PatternServerless    InfraPattern = "serverless"
	PatternContainerized InfraPattern = "containerized"
	PatternTraditional   InfraPattern = "traditional"
	PatternMultiCloud    InfraPattern = "multi_cloud"
	PatternRegulated     InfraPattern = "regulated"
)

// Item is one interview question with its parsed validation rules. Rules
// keep declaration order; the first failing rule's message is surfaced.
type Item struct {
	ID        string
	Category  string
	Question  string
	Type      AnswerType
	Options   []string
	RuleSpecs []RuleSpec
	Rules     []Rule
	FollowUps []string
	Default   string
}

// Category is an ordered group of requirement items.
type Category struct {
	Name  string
	Items []Item
}

// Catalog holds the full requirement catalog with rules parsed once at
// load. SelectFor picks the minimal relevant subset per collection cycle.
type Catalog struct {
	categories []Category
}

func NewCatalog(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Catalog{categories: defaultCategories()}
	for ci := range c.categories {
		for ii := range c.categories[ci].Items {
			item := &c.categories[ci].Items[ii]
			item.Category = c.categories[ci].Name
			item.Rules = ParseRules(item.RuleSpecs, logger)
		}
	}
	return c
}

// Categories returns the full catalog, used by the transport layer to
// render forms without duplicating collector logic.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// SelectFor chooses the relevant category subset for one collection cycle.
// The selection happens once; a changed pattern mid-interview starts a
// fresh cycle instead of mutating this one.
func (c *Catalog) SelectFor(pattern InfraPattern, environment string) []Category {
	include := map[string]bool{
		"compute":    true,
		"networking": true,
		"data":       true,
		"operations": true,
	}

	switch pattern {
	case PatternServerless:
		// Managed scaling; the scaling category only adds noise.
	case PatternMultiCloud:
		include["scaling"] = true
		include["budget"] = true
	case PatternRegulated:
		include["scaling"] = true
		include["security"] = true
		include["compliance"] = true
	default:
		include["scaling"] = true
	}

	if strings.EqualFold(environment, "production") {
		include["security"] = true
	}

	var selected []Category
	for _, cat := range c.categories {
		if include[cat.Name] {
			selected = append(selected, cat)
		}
	}
	return selected
}

// InferPattern maps analysis keywords to the coarse infrastructure pattern.
func InferPattern(keywords []string) InfraPattern {
	set := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		set[kw] = true
	}

	clouds := 0
	for _, cloud := range []string{"aws", "azure", "gcp"} {
		if set[cloud] {
			clouds++
		}
	}

	switch {
	case set["compliance"] || set["hipaa"] || set["pci"] || set["gdpr"]:
		return PatternRegulated
	case clouds >= 2 || set["multicloud"]:
		return PatternMultiCloud
	case set["serverless"] || set["lambda"] || set["faas"]:
		return PatternServerless
	case set["kubernetes"] || set["k8s"] || set["docker"] || set["container"] || set["containers"] || set["ecs"] || set["eks"] || set["fargate"]:
		return PatternContainerized
	default:
		return PatternTraditional
	}
}

func defaultCategories() []Category {
	return []Category{
		{
			Name: "compute",
			Items: []Item{
				{
					ID:       "compute_workload",
					Question: "What kind of workload will this run?",
					Type:     AnswerDropdown,
					Options:  []string{"web application", "api backend", "batch processing", "data pipeline", "static site"},
					RuleSpecs: []RuleSpec{
						{Kind: "not_empty", ErrorMessage: "please pick a workload type"},
						{Kind: "enum", Params: map[string]interface{}{
							"options": []string{"web application", "api backend", "batch processing", "data pipeline", "static site"},
						}},
					},
					Default: "web application",
				},
				{
					ID:       "compute_traffic",
					Question: "Roughly how many requests per second at peak?",
					Type:     AnswerNumber,
					RuleSpecs: []RuleSpec{
						{Kind: "numeric_range", Params: map[string]interface{}{"min": 1, "max": 1000000}},
					},
					FollowUps: []string{"Is the traffic steady or bursty?"},
					Default:   "100",
				},
			},
		},
		{
			Name: "networking",
			Items: []Item{
				{
					ID:       "network_region",
					Question: "Which region should this deploy to (e.g. us-east-1)?",
					Type:     AnswerText,
					RuleSpecs: []RuleSpec{
						{Kind: "not_empty"},
						{Kind: "regex", Params: map[string]interface{}{"pattern": `^[a-z]{2}-[a-z]+-\d$`},
							ErrorMessage: "region must look like us-east-1"},
					},
					Default: "us-east-1",
				},
				{
					ID:       "network_exposure",
					Question: "Should the service be reachable from the public internet?",
					Type:     AnswerDropdown,
					Options:  []string{"public", "internal only"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{"options": []string{"public", "internal only"}}},
					},
					Default: "public",
				},
			},
		},
		{
			Name: "data",
			Items: []Item{
				{
					ID:       "data_store",
					Question: "What kind of data store does the workload need?",
					Type:     AnswerDropdown,
					Options:  []string{"relational", "key-value", "object storage", "none"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{
							"options": []string{"relational", "key-value", "object storage", "none"},
						}},
					},
					Default: "relational",
				},
				{
					ID:       "data_size_gb",
					Question: "Expected data volume in GB over the first year?",
					Type:     AnswerNumber,
					RuleSpecs: []RuleSpec{
						{Kind: "numeric_range", Params: map[string]interface{}{"min": 1, "max": 100000}},
					},
					Default: "50",
				},
			},
		},
		{
			Name: "scaling",
			Items: []Item{
				{
					ID:       "scaling_min",
					Question: "Minimum number of instances to keep warm?",
					Type:     AnswerNumber,
					RuleSpecs: []RuleSpec{
						{Kind: "numeric_range", Params: map[string]interface{}{"min": 1, "max": 100}},
					},
					Default: "2",
				},
				{
					ID:       "scaling_signal",
					Question: "What signal should trigger scaling?",
					Type:     AnswerDropdown,
					Options:  []string{"cpu", "request rate", "queue depth"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{"options": []string{"cpu", "request rate", "queue depth"}}},
					},
					Default: "request rate",
				},
			},
		},
		{
			Name: "security",
			Items: []Item{
				{
					ID:       "security_data_classification",
					Question: "What is the most sensitive data class handled?",
					Type:     AnswerDropdown,
					Options:  []string{"public", "internal", "confidential", "pii"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{
							"options": []string{"public", "internal", "confidential", "pii"},
						}},
					},
					Default: "internal",
				},
			},
		},
		{
			Name: "budget",
			Items: []Item{
				{
					ID:       "budget_monthly_usd",
					Question: "What is the monthly budget in USD?",
					Type:     AnswerNumber,
					RuleSpecs: []RuleSpec{
						{Kind: "numeric_range", Params: map[string]interface{}{"min": 10},
							ErrorMessage: "budget must be at least 10 USD per month"},
					},
					FollowUps: []string{"Should I optimize for cost over performance?"},
					Default:   "500",
				},
			},
		},
		{
			Name: "compliance",
			Items: []Item{
				{
					ID:       "compliance_framework",
					Question: "Which compliance framework applies?",
					Type:     AnswerDropdown,
					Options:  []string{"hipaa", "pci-dss", "gdpr", "soc2"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{
							"options": []string{"hipaa", "pci-dss", "gdpr", "soc2"},
						}},
					},
				},
				{
					ID:       "compliance_residency",
					Question: "Any data residency constraint (country code, or 'none')?",
					Type:     AnswerText,
					RuleSpecs: []RuleSpec{
						{Kind: "regex", Params: map[string]interface{}{"pattern": `^([a-z]{2}|none)$`},
							ErrorMessage: "use a two-letter country code or 'none'"},
					},
					Default: "none",
				},
			},
		},
		{
			Name: "operations",
			Items: []Item{
				{
					ID:       "ops_monitoring",
					Question: "What level of monitoring do you want?",
					Type:     AnswerDropdown,
					Options:  []string{"basic", "standard", "full observability"},
					RuleSpecs: []RuleSpec{
						{Kind: "enum", Params: map[string]interface{}{
							"options": []string{"basic", "standard", "full observability"},
						}},
					},
					Default: "standard",
				},
				{
					ID:       "ops_backup_days",
					Question: "How many days of backups should be retained?",
					Type:     AnswerNumber,
					RuleSpecs: []RuleSpec{
						{Kind: "numeric_range", Params: map[string]interface{}{"min": 1, "max": 365}},
					},
					Default: "30",
				},
			},
		},
	}
}
