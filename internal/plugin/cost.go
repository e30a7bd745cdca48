package plugin

import (
	"context"
	"strings"

	"github.com/infra-agent/backend/internal/analysis"
)

// CostPlugin contributes spend-optimization guidance when budget or
// pricing vocabulary shows up.
type CostPlugin struct {
	capability Capability
}

func NewCostPlugin() *CostPlugin {
	return &CostPlugin{
		capability: Capability{
			Name: "cost",
			Keywords: []string{
				"cost", "costs", "budget", "pricing", "price", "cheap",
				"expensive", "billing", "spend", "savings", "reserved",
				"spot",
			},
			Threshold:   0.25,
			CanExecute:  false,
			Description: "Cost estimation and spend optimization guidance",
		},
	}
}

func (p *CostPlugin) Name() string           { return p.capability.Name }
func (p *CostPlugin) Capability() Capability { return p.capability }

func (p *CostPlugin) Score(a analysis.Analysis) float64 {
	return keywordOverlap(p.capability.Keywords, a.Keywords)
}

func (p *CostPlugin) Respond(ctx context.Context, a analysis.Analysis) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var b strings.Builder
	b.WriteString("On cost: ")
	b.WriteString("right-size before you optimize pricing models. ")
	b.WriteString("Tag every resource for cost allocation, set a billing alarm at 80% of budget, ")
	b.WriteString("and review the largest three line items monthly.")

	if mentions(a.Keywords, "spot", "batch") {
		b.WriteString(" Interruptible workloads belong on spot capacity; the discount is usually 60-90%.")
	}
	if mentions(a.Keywords, "reserved", "steady") {
		b.WriteString(" For steady baseline load, reserved or committed-use pricing beats on-demand.")
	}

	return &Response{
		Text:       b.String(),
		Confidence: 0.7,
		Payload: map[string]interface{}{
			"tool": "cost-advisor",
		},
	}, nil
}
