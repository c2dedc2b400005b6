package prometheus

import (
	promclient "github.com/prometheus/client_golang/prometheus"
)

// Business-level metrics for the collective API
// These track actual business operations, not just HTTP requests

var (
	// ═══════════════════════════════════════════════════════════════════════════
	// MUTATION METRICS
	// ═══════════════════════════════════════════════════════════════════════════

	// GiftCardsCreatedTotal - Counter of gift cards emitted, labeled by delivery path
	GiftCardsCreatedTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_gift_cards_created_total",
			Help: "Total number of gift cards created",
		},
		[]string{"delivery"}, // "email" or "code"
	)

	// GiftCardEmailFailuresTotal - Counter of gift card emails that could not be sent
	GiftCardEmailFailuresTotal = promclient.NewCounter(
		promclient.CounterOpts{
			Name: "collective_gift_card_email_failures_total",
			Help: "Total number of gift card emails that failed to send",
		},
	)

	// UsersCreatedTotal - Counter of users created, labeled by whether an organization came along
	UsersCreatedTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_users_created_total",
			Help: "Total number of users created",
		},
		[]string{"with_organization"},
	)

	// CoreContributorsEditedTotal - Counter of core contributor replacements
	CoreContributorsEditedTotal = promclient.NewCounter(
		promclient.CounterOpts{
			Name: "collective_core_contributors_edited_total",
			Help: "Total number of core contributor edits",
		},
	)

	// MutationRejectionsTotal - Counter of rejected mutations by error code
	MutationRejectionsTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_mutation_rejections_total",
			Help: "Total number of rejected mutations",
		},
		[]string{"mutation", "code"},
	)

	// ═══════════════════════════════════════════════════════════════════════════
	// AUTHORIZATION METRICS
	// ═══════════════════════════════════════════════════════════════════════════

	// RateLimitRejectionsTotal - Counter of calls refused by a rate limiter
	RateLimitRejectionsTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_rate_limit_rejections_total",
			Help: "Total number of calls rejected by rate limiting",
		},
		[]string{"action"},
	)

	// FieldAccessDeniedTotal - Counter of gated fields resolved to their denial value
	FieldAccessDeniedTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_field_access_denied_total",
			Help: "Total number of field resolutions denied by the permission gate",
		},
		[]string{"surface", "class"},
	)

	// TwoFactorChallengesTotal - Counter of operations refused for missing 2FA
	TwoFactorChallengesTotal = promclient.NewCounter(
		promclient.CounterOpts{
			Name: "collective_two_factor_challenges_total",
			Help: "Total number of operations that required a fresh two-factor verification",
		},
	)

	// ═══════════════════════════════════════════════════════════════════════════
	// STORE METRICS
	// ═══════════════════════════════════════════════════════════════════════════

	// OperationDuration - Histogram of store operation durations
	OperationDuration = promclient.NewHistogramVec(
		promclient.HistogramOpts{
			Name:    "collective_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: promclient.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
		},
		[]string{"operation", "success"}, // operation name, "true" or "false"
	)

	// OperationsTotal - Counter of store operations
	OperationsTotal = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_store_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "success"},
	)

	// BatchSize - Histogram of keys fetched per batched read
	BatchSize = promclient.NewHistogramVec(
		promclient.HistogramOpts{
			Name:    "collective_store_batch_size",
			Help:    "Number of keys requested per batched store read",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"operation"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	promclient.MustRegister(
		GiftCardsCreatedTotal,
		GiftCardEmailFailuresTotal,
		UsersCreatedTotal,
		CoreContributorsEditedTotal,
		MutationRejectionsTotal,
		RateLimitRejectionsTotal,
		FieldAccessDeniedTotal,
		TwoFactorChallengesTotal,
		OperationDuration,
		OperationsTotal,
		BatchSize,
	)
}
