package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/infra-agent/backend/internal/llm"
	"github.com/infra-agent/backend/internal/requirements"
)

// Plan is the structured output of a completed requirements interview.
type Plan struct {
	Pattern     requirements.InfraPattern `json:"pattern"`
	Environment string                    `json:"environment"`
	Sections    []Section                 `json:"sections"`
	Narrative   string                    `json:"narrative,omitempty"`
}

// Section groups the recommendations derived from one answer category.
type Section struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Planner turns collected answers into a deployment plan. The narrative
// paragraph is optional LLM garnish; the structured sections are always
// produced and never depend on the model.
type Planner struct {
	llm    *llm.Client
	logger *zap.Logger
}

func New(llmClient *llm.Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{llm: llmClient, logger: logger}
}

// Build renders the plan for a completed collection. It is the caller's
// responsibility to only invoke this once the collection is complete.
func (p *Planner) Build(ctx context.Context, c *requirements.Collection) *Plan {
	answers := c.Answers()

	plan := &Plan{
		Pattern:     c.Pattern,
		Environment: c.Environment,
	}

	plan.Sections = append(plan.Sections, computeSection(c.Pattern, answers))
	plan.Sections = append(plan.Sections, networkSection(answers))
	if s, ok := dataSection(answers); ok {
		plan.Sections = append(plan.Sections, s)
	}
	if s, ok := scalingSection(answers); ok {
		plan.Sections = append(plan.Sections, s)
	}
	if s, ok := governanceSection(answers); ok {
		plan.Sections = append(plan.Sections, s)
	}
	plan.Sections = append(plan.Sections, operationsSection(answers))

	if p.llm.Enabled() {
		narrative, err := p.llm.PlanNarrative(ctx, p.Summary(plan))
		if err == nil {
			plan.Narrative = narrative
		}
	}

	return plan
}

// Summary flattens the plan into plain text, used both for the narrative
// prompt and for chat rendering.
func (p *Planner) Summary(plan *Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Deployment plan (%s, %s environment)\n", plan.Pattern, plan.Environment)
	for _, s := range plan.Sections {
		fmt.Fprintf(&b, "\n%s:\n", s.Title)
		for _, line := range s.Lines {
			fmt.Fprintf(&b, "  - %s\n", line)
		}
	}
	return b.String()
}

func computeSection(pattern requirements.InfraPattern, answers map[string]string) Section {
	s := Section{Title: "Compute"}

	workload := answers["compute_workload"]
	if workload == "" {
		workload = "web application"
	}

	switch pattern {
	case requirements.PatternServerless:
		s.Lines = append(s.Lines,
			fmt.Sprintf("Run the %s on managed functions behind an API gateway", workload),
			"No instances to manage; concurrency limits replace capacity planning",
		)
	case requirements.PatternContainerized:
		s.Lines = append(s.Lines,
			fmt.Sprintf("Package the %s as containers on a managed cluster", workload),
			"One deployment per service, resource requests and limits on every pod",
		)
	default:
		s.Lines = append(s.Lines,
			fmt.Sprintf("Run the %s on managed virtual machines behind a load balancer", workload),
		)
	}

	if traffic := answers["compute_traffic"]; traffic != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Size for roughly %s requests per second at peak", traffic))
	}
	return s
}

func networkSection(answers map[string]string) Section {
	s := Section{Title: "Networking"}

	if region := answers["network_region"]; region != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Deploy to %s with at least two availability zones", region))
	}
	switch answers["network_exposure"] {
	case "internal only":
		s.Lines = append(s.Lines, "Keep all endpoints on private subnets; access via VPN or peering")
	default:
		s.Lines = append(s.Lines, "Public entry point through a load balancer with TLS termination; workloads stay on private subnets")
	}
	return s
}

func dataSection(answers map[string]string) (Section, bool) {
	store := answers["data_store"]
	if store == "" || store == "none" {
		return Section{}, false
	}

	s := Section{Title: "Data"}
	switch store {
	case "relational":
		s.Lines = append(s.Lines, "Managed relational database with automated backups and a read replica path")
	case "key-value":
		s.Lines = append(s.Lines, "Managed key-value store; design partition keys before writing data")
	case "object storage":
		s.Lines = append(s.Lines, "Object storage with lifecycle rules to tier cold data")
	default:
		s.Lines = append(s.Lines, fmt.Sprintf("Provision a managed %s store", store))
	}

	if size := answers["data_size_gb"]; size != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Provision for about %s GB in year one", size))
	}
	return s, true
}

func scalingSection(answers map[string]string) (Section, bool) {
	minInstances := answers["scaling_min"]
	signal := answers["scaling_signal"]
	if minInstances == "" && signal == "" {
		return Section{}, false
	}

	s := Section{Title: "Scaling"}
	if minInstances != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Keep a minimum of %s instances warm", minInstances))
	}
	if signal != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Scale out on %s", signal))
	}
	return s, true
}

func governanceSection(answers map[string]string) (Section, bool) {
	var lines []string

	if class := answers["security_data_classification"]; class != "" {
		lines = append(lines, fmt.Sprintf("Treat data as %s: encrypt at rest, least-privilege IAM, audit logging on", class))
	}
	if framework := answers["compliance_framework"]; framework != "" {
		lines = append(lines, fmt.Sprintf("Design controls against %s from the start", framework))
	}
	if residency := answers["compliance_residency"]; residency != "" && residency != "none" {
		lines = append(lines, fmt.Sprintf("Keep all data within %s", residency))
	}
	if budget := answers["budget_monthly_usd"]; budget != "" {
		lines = append(lines, fmt.Sprintf("Monthly budget of %s USD; billing alarm at 80%%", budget))
	}

	if len(lines) == 0 {
		return Section{}, false
	}
	return Section{Title: "Governance", Lines: lines}, true
}

func operationsSection(answers map[string]string) Section {
	s := Section{Title: "Operations"}

	switch answers["ops_monitoring"] {
	case "basic":
		s.Lines = append(s.Lines, "Basic health checks and uptime alerts")
	case "full observability":
		s.Lines = append(s.Lines, "Metrics, structured logs, and distributed traces wired into dashboards and alerts")
	default:
		s.Lines = append(s.Lines, "Standard metrics and log aggregation with alerting on error rate and latency")
	}

	if days := answers["ops_backup_days"]; days != "" {
		s.Lines = append(s.Lines, fmt.Sprintf("Retain backups for %s days; test a restore quarterly", days))
	}
	return s
}
