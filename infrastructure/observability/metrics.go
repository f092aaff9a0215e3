package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cubeduel/config"
	"cubeduel/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the duel engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	matchesCounter               metric.Int64Counter
	throwsCounter                metric.Int64Counter
	roundsTiedCounter            metric.Int64Counter
	starsWageredCounter          metric.Float64Counter
	commissionCounter            metric.Float64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	balanceTransactionsCounter   metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	return mp.initializeWithReader(reader)
}

func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter(MetricPrefix)

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.matchesCounter, err = mp.meter.Int64Counter(
		MatchesTotal,
		metric.WithDescription("Cube match lifecycle transitions by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create matches counter: %w", err)
	}

	mp.throwsCounter, err = mp.meter.Int64Counter(
		ThrowsTotal,
		metric.WithDescription("Total number of recorded die throws"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create throws counter: %w", err)
	}

	mp.roundsTiedCounter, err = mp.meter.Int64Counter(
		RoundsTiedTotal,
		metric.WithDescription("Total number of tied rounds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds tied counter: %w", err)
	}

	mp.starsWageredCounter, err = mp.meter.Float64Counter(
		StarsWageredTotal,
		metric.WithDescription("Stars moved from losers in settled duels"),
		metric.WithUnit("{star}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stars wagered counter: %w", err)
	}

	mp.commissionCounter, err = mp.meter.Float64Counter(
		CommissionTotal,
		metric.WithDescription("Stars retained as house commission"),
		metric.WithUnit("{star}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create commission counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.balanceTransactionsCounter, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of balance transactions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider == nil {
		return nil
	}
	if err := mp.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.initialized = false
	return nil
}

// RecordMatch records a match lifecycle transition
func (mp *MetricsProvider) RecordMatch(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.matchesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordThrow records one die throw
func (mp *MetricsProvider) RecordThrow() {
	if !mp.isEnabled() {
		return
	}
	mp.throwsCounter.Add(context.Background(), 1)
}

// RecordTie records a tied round
func (mp *MetricsProvider) RecordTie() {
	if !mp.isEnabled() {
		return
	}
	mp.roundsTiedCounter.Add(context.Background(), 1)
}

// RecordSettlement records the stars moved by a settled duel
func (mp *MetricsProvider) RecordSettlement(stake, commission float64) {
	if !mp.isEnabled() {
		return
	}
	mp.starsWageredCounter.Add(context.Background(), stake)
	mp.commissionCounter.Add(context.Background(), commission)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// RecordBalanceTransaction records a balance transaction
func (mp *MetricsProvider) RecordBalanceTransaction(transactionType string) {
	if !mp.isEnabled() {
		return
	}
	mp.balanceTransactionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, transactionType)),
	)
}

// Subscribe records metrics for committed domain events
func (mp *MetricsProvider) Subscribe(bus *events.Bus) {
	outcomes := map[events.EventType]string{
		events.EventTypeCubeMatchOpened:    OutcomeOpened,
		events.EventTypeCubeMatchStarted:   OutcomeStarted,
		events.EventTypeCubeMatchForfeited: OutcomeForfeited,
		events.EventTypeCubeMatchCanceled:  OutcomeCanceled,
	}
	for eventType, outcome := range outcomes {
		outcome := outcome
		bus.Subscribe(eventType, func(ctx context.Context, event events.Event) {
			mp.RecordMatch(outcome)
		})
	}

	bus.Subscribe(events.EventTypeCubeThrowRecorded, func(ctx context.Context, event events.Event) {
		mp.RecordThrow()
	})
	bus.Subscribe(events.EventTypeCubeRoundTied, func(ctx context.Context, event events.Event) {
		mp.RecordThrow()
		mp.RecordTie()
	})
	bus.Subscribe(events.EventTypeCubeMatchSettled, func(ctx context.Context, event events.Event) {
		settled, ok := event.(events.CubeMatchSettledEvent)
		if !ok {
			return
		}
		mp.RecordThrow()
		mp.RecordMatch(OutcomeSettled)
		mp.RecordSettlement(settled.Stake.InexactFloat64(), settled.Commission.InexactFloat64())
	})
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) {
		change, ok := event.(events.BalanceChangeEvent)
		if !ok {
			return
		}
		mp.RecordBalanceTransaction(string(change.TransactionType))
	})
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized
}
