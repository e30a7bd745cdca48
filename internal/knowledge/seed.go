package knowledge

import (
	"time"

	"github.com/infra-agent/backend/internal/storage/models"
)

// SeedPatterns is the curated starting knowledge base. Confidence weights
// are 0-100; higher means the template answer is more authoritative for its
// keyword signature.
func SeedPatterns() []models.Pattern {
	now := time.Now()

	seeds := []struct {
		id         string
		category   string
		keywords   []string
		template   string
		confidence int
	}{
		{
			id:       "serverless_overview",
			category: "architecture",
			keywords: []string{"serverless", "lambda", "functions", "faas"},
			template: "A serverless setup typically pairs Lambda functions behind an API Gateway with DynamoDB for state. You pay per invocation, scale to zero, and avoid instance management. Watch cold-start latency for user-facing paths and keep functions single-purpose.",
			confidence: 85,
		},
		{
			id:       "kubernetes_overview",
			category: "architecture",
			keywords: []string{"kubernetes", "k8s", "cluster", "container", "orchestration"},
			template: "Kubernetes fits workloads that need fine-grained scheduling, rolling deploys, and horizontal scaling of long-running services. Use a managed control plane (EKS/GKE/AKS), keep node groups per workload class, and manage releases with Helm.",
			confidence: 85,
		},
		{
			id:       "terraform_basics",
			category: "provisioning",
			keywords: []string{"terraform", "provisioning", "state", "modules"},
			template: "Terraform describes infrastructure declaratively. Keep state in a remote backend with locking, split environments into workspaces or directories, and compose reusable modules per component. Always review the plan before applying.",
			confidence: 90,
		},
		{
			id:       "ansible_configuration",
			category: "provisioning",
			keywords: []string{"ansible", "playbook", "configuration"},
			template: "Ansible handles post-provisioning configuration: package installs, service setup, file templating. Keep playbooks idempotent, group hosts in inventories per environment, and prefer roles for anything reused.",
			confidence: 80,
		},
		{
			id:       "docker_containers",
			category: "containers",
			keywords: []string{"docker", "container", "image", "dockerfile", "compose"},
			template: "Containerize each service with a minimal base image, multi-stage builds, and a non-root user. Use docker compose for local development and a registry with image scanning for anything that ships.",
			confidence: 85,
		},
		{
			id:       "vpc_networking",
			category: "networking",
			keywords: []string{"vpc", "subnet", "network", "networking", "routing"},
			template: "Structure a VPC with public subnets for load balancers, private subnets for services, and isolated subnets for data stores, spread across at least two availability zones. NAT gateways give private workloads egress.",
			confidence: 85,
		},
		{
			id:       "database_selection",
			category: "data",
			keywords: []string{"database", "rds", "dynamodb", "postgres", "mysql", "storage"},
			template: "Pick relational (RDS/Postgres) when you need transactions and ad hoc queries; pick DynamoDB for single-digit-millisecond key-value access at scale. Either way, enable automated backups and encrypt at rest.",
			confidence: 80,
		},
		{
			id:       "monitoring_observability",
			category: "operations",
			keywords: []string{"monitoring", "logging", "observability", "prometheus", "grafana", "cloudwatch", "alerts"},
			template: "Instrument services with metrics (Prometheus/CloudWatch), centralize structured logs, and alert on symptoms rather than causes. Dashboards per service plus one golden-signals overview cover most operational needs.",
			confidence: 80,
		},
		{
			id:       "security_baseline",
			category: "security",
			keywords: []string{"security", "iam", "encryption", "secrets", "compliance"},
			template: "Baseline security: least-privilege IAM roles per service, encryption in transit and at rest, secrets in a managed vault rather than environment files, and audit logging enabled from day one.",
			confidence: 90,
		},
		{
			id:       "cicd_pipeline",
			category: "delivery",
			keywords: []string{"cicd", "pipeline", "deployment", "delivery", "rollback"},
			template: "A solid pipeline builds an immutable artifact once, promotes it through environments, and deploys with an automatic rollback path (blue/green or canary). Gate production on the same checks every time.",
			confidence: 80,
		},
		{
			id:       "cost_optimization",
			category: "cost",
			keywords: []string{"cost", "budget", "pricing", "savings", "optimization"},
			template: "Largest levers on cloud spend: right-sizing instances, autoscaling down off-peak, reserved capacity or savings plans for steady load, and lifecycle policies that tier cold storage. Tag everything so spend maps to owners.",
			confidence: 75,
		},
		{
			id:       "backup_disaster_recovery",
			category: "operations",
			keywords: []string{"backup", "disaster", "recovery", "restore", "replication"},
			template: "Define RPO and RTO first, then work backwards: automated snapshots for modest RPO, cross-region replication for aggressive ones. Test restores on a schedule; an untested backup is a hope, not a plan.",
			confidence: 80,
		},
		{
			id:       "autoscaling_strategy",
			category: "operations",
			keywords: []string{"autoscaling", "scaling", "capacity", "load"},
			template: "Scale on a leading indicator (request rate, queue depth) rather than CPU alone, set sensible minimums for warm capacity, and load-test the scaling policy before trusting it with production traffic.",
			confidence: 75,
		},
		{
			id:       "capabilities_overview",
			category: "capabilities",
			keywords: []string{"capabilities", "help", "assistant", "features"},
			template: "I can explain infrastructure concepts, recommend architectures, and walk you through a requirements interview to produce a structured infrastructure plan covering compute, networking, data, security, and cost.",
			confidence: 70,
		},
	}

	patterns := make([]models.Pattern, 0, len(seeds))
	for _, s := range seeds {
		patterns = append(patterns, models.Pattern{
			ID:               s.id,
			Category:         s.category,
			Keywords:         s.keywords,
			ResponseTemplate: s.template,
			Confidence:       s.confidence,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	return patterns
}
