package plugin

import (
	"context"
	"strings"

	"github.com/infra-agent/backend/internal/analysis"
)

// SecurityPlugin contributes hardening guidance for security-shaped
// queries and compliance mentions.
type SecurityPlugin struct {
	capability Capability
}

func NewSecurityPlugin() *SecurityPlugin {
	return &SecurityPlugin{
		capability: Capability{
			Name: "security",
			Keywords: []string{
				"security", "iam", "encryption", "firewall", "compliance",
				"hipaa", "pci", "gdpr", "secrets", "tls", "audit", "waf",
				"authentication", "authorization",
			},
			Threshold:   0.25,
			CanExecute:  false,
			Description: "Security posture and compliance guidance",
		},
	}
}

func (p *SecurityPlugin) Name() string           { return p.capability.Name }
func (p *SecurityPlugin) Capability() Capability { return p.capability }

func (p *SecurityPlugin) Score(a analysis.Analysis) float64 {
	return keywordOverlap(p.capability.Keywords, a.Keywords)
}

func (p *SecurityPlugin) Respond(ctx context.Context, a analysis.Analysis) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var b strings.Builder
	b.WriteString("On the security side: ")
	b.WriteString("scope IAM to least privilege, encrypt data at rest and in transit, ")
	b.WriteString("and keep secrets out of configuration files and into a managed secrets store.")

	if mentions(a.Keywords, "compliance", "hipaa", "pci", "gdpr") {
		b.WriteString(" Since compliance came up, enable audit logging from day one ")
		b.WriteString("and document data flows before the first deployment, not after.")
	}
	if mentions(a.Keywords, "firewall", "waf", "network") {
		b.WriteString(" Put a WAF in front of anything public and default-deny at the network boundary.")
	}

	return &Response{
		Text:       b.String(),
		Confidence: 0.7,
		Payload: map[string]interface{}{
			"tool": "security-review",
		},
	}, nil
}
