// Package metrics defines and registers all custom Prometheus metrics for the
// civic reports API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "civic"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts register and login outcomes.
// Labels:
//   - operation: "register" or "login"
//   - result: "success", "failure", "duplicate", "forbidden"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of register and login attempts, by outcome.",
	},
	[]string{"operation", "result"},
)

// AuthenticationRejectionsTotal counts requests rejected by the Auth middleware.
// Label:
//   - stage: "missing_token", "invalid_token", "unknown_user"
var AuthenticationRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentication_rejections_total",
		Help:      "Total number of requests rejected during token resolution, by stage.",
	},
	[]string{"stage"},
)

// AuthorizationDenialsTotal counts authenticated requests whose role was not allowed.
// Labels:
//   - role: the caller's role
//   - policy: comma-joined allowed roles of the route
var AuthorizationDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denials_total",
		Help:      "Total number of requests denied by role policy.",
	},
	[]string{"role", "policy"},
)

// ── Issue metrics ─────────────────────────────────────────────────────────────

// IssuesCreatedTotal counts newly filed reports.
// Label:
//   - category: "road", "lighting", "garbage", "infrastructure", "other"
var IssuesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issues_created_total",
		Help:      "Total number of issues reported, by category.",
	},
	[]string{"category"},
)

// IssueStatusChangesTotal counts triage status changes.
// Label:
//   - status: the status applied
var IssueStatusChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "issue_status_changes_total",
		Help:      "Total number of issue status changes, by new status.",
	},
	[]string{"status"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditErrorsTotal counts audit events that were not persisted.
// Label:
//   - reason: "insert_failed" or "queue_full"
var AuditErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of audit events that failed to persist.",
	},
	[]string{"reason"},
)
