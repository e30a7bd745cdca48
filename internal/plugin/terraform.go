package plugin

import (
	"context"
	"strings"

	"github.com/infra-agent/backend/internal/analysis"
)

// TerraformPlugin handles provisioning-shaped queries. It scores highest
// on create intents that mention infrastructure-as-code vocabulary.
type TerraformPlugin struct {
	capability Capability
}

func NewTerraformPlugin() *TerraformPlugin {
	return &TerraformPlugin{
		capability: Capability{
			Name: "terraform",
			Keywords: []string{
				"terraform", "provision", "deploy", "infrastructure", "iac",
				"module", "provider", "state", "plan", "apply", "hcl",
			},
			Threshold:   0.2,
			CanExecute:  false,
			Description: "Infrastructure-as-code provisioning guidance",
		},
	}
}

func (p *TerraformPlugin) Name() string           { return p.capability.Name }
func (p *TerraformPlugin) Capability() Capability { return p.capability }

func (p *TerraformPlugin) Score(a analysis.Analysis) float64 {
	score := keywordOverlap(p.capability.Keywords, a.Keywords)
	if a.Intent == analysis.IntentInfrastructureCreate {
		score += 0.3
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (p *TerraformPlugin) Respond(ctx context.Context, a analysis.Analysis) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var b strings.Builder
	b.WriteString("From a provisioning standpoint: ")

	switch a.Intent {
	case analysis.IntentInfrastructureCreate:
		b.WriteString("I'd capture this as Terraform modules so the setup is repeatable and reviewable. ")
		b.WriteString("Start with a root module per environment, remote state in object storage with locking, ")
		b.WriteString("and keep provider versions pinned.")
	default:
		b.WriteString("Terraform fits here if you want the configuration declared and versioned. ")
		b.WriteString("A plan/apply workflow with remote state keeps changes auditable.")
	}

	if mentions(a.Keywords, "module", "modules") {
		b.WriteString(" Prefer small, single-purpose modules over one monolith; compose them from the root.")
	}

	return &Response{
		Text:       b.String(),
		Confidence: 0.75,
		Payload: map[string]interface{}{
			"tool":   "terraform",
			"intent": string(a.Intent),
		},
	}, nil
}

func mentions(keywords []string, terms ...string) bool {
	for _, kw := range keywords {
		for _, term := range terms {
			if kw == term {
				return true
			}
		}
	}
	return false
}
