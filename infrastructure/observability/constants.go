package observability

// Metric name prefixes
const (
	MetricPrefix = "cubeduel"
)

// Metric names
const (
	// Match lifecycle
	MatchesTotal      = MetricPrefix + ".cube.matches_total"
	ThrowsTotal       = MetricPrefix + ".cube.throws_total"
	RoundsTiedTotal   = MetricPrefix + ".cube.rounds_tied_total"
	StarsWageredTotal = MetricPrefix + ".cube.stars_wagered_total"
	CommissionTotal   = MetricPrefix + ".cube.commission_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
)

// Match outcomes
const (
	OutcomeOpened    = "opened"
	OutcomeStarted   = "started"
	OutcomeSettled   = "settled"
	OutcomeForfeited = "forfeited"
	OutcomeCanceled  = "canceled"
)
