package analysis

import "strings"

// intentRule is one entry in the classification cascade. Rules are evaluated
// in slice order and the first match wins, so precedence lives in the table
// rather than in nested conditionals.
type intentRule struct {
	name   string
	intent Intent
	eval   func(f *features, prior Context) (match bool, signals int)
}

func intentRules() []intentRule {
	return []intentRule{
		{
			// Bare salutations and courtesies. Suppressed whenever the text
			// carries domain keywords so "hi, build me a VPC" is never small
			// talk.
			name:   "casual_phrase",
			intent: IntentCasual,
			eval: func(f *features, _ Context) (bool, int) {
				if f.domainCount > 0 {
					return false, 0
				}
				if !casualPhrases[f.lower] {
					return false, 0
				}
				// Exact-phrase match plus the absence of domain terms are
				// independent agreeing signals.
				return true, 3
			},
		},
		{
			name:   "greeting_opener",
			intent: IntentGreeting,
			eval: func(f *features, _ Context) (bool, int) {
				if f.domainCount > 0 {
					return false, 0
				}
				for _, g := range greetingOpeners {
					if strings.HasPrefix(f.lower, g) {
						// A salutation carrying no content words at all is as
						// unambiguous as an exact casual phrase.
						if len(f.keywords) == 0 {
							return true, 3
						}
						return true, 2
					}
				}
				return false, 0
			},
		},
		{
			name:   "capability_question",
			intent: IntentCapabilityQuestion,
			eval: func(f *features, _ Context) (bool, int) {
				signals := 0
				for _, p := range capabilityPhrases {
					if strings.Contains(f.lower, p) {
						signals++
					}
				}
				if signals == 0 {
					return false, 0
				}
				if f.question {
					signals++
				}
				return true, signals + 1
			},
		},
		{
			name:   "infrastructure_create",
			intent: IntentInfrastructureCreate,
			eval: func(f *features, _ Context) (bool, int) {
				verb := false
				for _, v := range createVerbs {
					if strings.Contains(f.lower, v) {
						verb = true
						break
					}
				}
				if !verb || f.domainCount == 0 {
					return false, 0
				}
				signals := 2
				if f.domainCount >= 2 {
					signals++
				}
				for _, n := range infrastructureNouns {
					if strings.Contains(f.lower, n) {
						signals++
						break
					}
				}
				return true, signals
			},
		},
		{
			name:   "command_request",
			intent: IntentCommandRequest,
			eval: func(f *features, _ Context) (bool, int) {
				if f.domainCount == 0 {
					return false, 0
				}
				for _, v := range commandVerbs {
					if strings.HasPrefix(f.lower, v+" ") {
						return true, 2
					}
				}
				return false, 0
			},
		},
		{
			// While an interview is in flight, anything that escaped the
			// higher-priority rules is treated as an answer to the current
			// question.
			name:   "requirements_answer",
			intent: IntentRequirementsAnswer,
			eval: func(f *features, prior Context) (bool, int) {
				if !prior.CollectionActive {
					return false, 0
				}
				return true, 2
			},
		},
		{
			name:   "information_request",
			intent: IntentInformationRequest,
			eval: func(f *features, prior Context) (bool, int) {
				if len(f.keywords) == 0 && !f.question {
					return false, 0
				}
				signals := 1
				if f.question {
					signals++
				}
				if f.domainCount > 0 {
					signals++
				}
				// A lookup right after another lookup is almost always a
				// follow-up on the same thread.
				if prior.LastIntent == IntentInformationRequest {
					signals++
				}
				return true, signals
			},
		},
	}
}

var casualPhrases = map[string]bool{
	"hi":              true,
	"hello":           true,
	"hey":             true,
	"yo":              true,
	"thanks":          true,
	"thank you":       true,
	"thanks a lot":    true,
	"ok":              true,
	"okay":            true,
	"cool":            true,
	"nice":            true,
	"great":           true,
	"awesome":         true,
	"bye":             true,
	"goodbye":         true,
	"how are you":     true,
	"good morning":    true,
	"good afternoon":  true,
	"good evening":    true,
	"whats up":        true,
	"what's up":       true,
}

var greetingOpeners = []string{
	"hi ", "hi,", "hello ", "hello,", "hey ", "hey,",
	"good morning", "good afternoon", "good evening",
}

var capabilityPhrases = []string{
	"what can you do",
	"what do you do",
	"list your capabilities",
	"what are your capabilities",
	"what are you capable of",
	"how can you help",
	"what can you help",
}

var createVerbs = []string{
	"create", "build", "design", "deploy", "provision", "set up", "setup", "spin up",
}

var commandVerbs = []string{
	"run", "execute", "show", "list", "describe", "destroy", "delete", "stop", "start",
}

var infrastructureNouns = []string{
	"infrastructure", "architecture", "environment", "stack", "platform", "topology",
}

var domainVocabulary = map[string]bool{
	"terraform": true, "ansible": true, "docker": true, "kubernetes": true,
	"k8s": true, "container": true, "containers": true, "serverless": true,
	"lambda": true, "ec2": true, "s3": true, "dynamodb": true, "rds": true,
	"database": true, "databases": true, "postgres": true, "postgresql": true,
	"mysql": true, "redis": true, "vpc": true, "subnet": true, "subnets": true,
	"network": true, "networking": true, "firewall": true, "dns": true,
	"loadbalancer": true, "balancer": true, "api": true, "gateway": true,
	"microservice": true, "microservices": true, "cloud": true, "aws": true,
	"azure": true, "gcp": true, "multicloud": true, "infrastructure": true,
	"architecture": true, "server": true, "servers": true, "storage": true,
	"bucket": true, "queue": true, "sqs": true, "sns": true, "kafka": true,
	"monitoring": true, "logging": true, "cicd": true, "pipeline": true,
	"deployment": true, "cluster": true, "node": true, "nodes": true,
	"instance": true, "instances": true, "autoscaling": true, "scaling": true,
	"iam": true, "security": true, "compliance": true, "encryption": true,
	"backup": true, "backups": true, "vault": true, "secrets": true,
	"cloudwatch": true, "prometheus": true, "grafana": true, "nginx": true,
	"fargate": true, "ecs": true, "eks": true, "cloudfront": true, "cdn": true,
	"vm": true, "helm": true, "registry": true,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"be": true, "been": true, "i": true, "me": true, "my": true, "we": true,
	"you": true, "your": true, "it": true, "its": true, "this": true,
	"that": true, "these": true, "those": true, "to": true, "of": true,
	"in": true, "on": true, "at": true, "for": true, "with": true,
	"and": true, "or": true, "but": true, "so": true, "if": true,
	"do": true, "does": true, "did": true, "can": true, "could": true,
	"would": true, "should": true, "will": true, "have": true, "has": true,
	"had": true, "please": true, "want": true, "need": true, "like": true,
	"some": true, "any": true, "us": true, "what": true,
	"how": true, "why": true, "when": true, "where": true, "which": true,
}

var conjunctions = map[string]bool{
	"and": true, "or": true, "but": true, "plus": true, "also": true,
	"then": true, "with": true, "while": true,
}
