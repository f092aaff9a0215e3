package observability

import (
	"context"
	"testing"
	"time"

	"cubeduel/config"
	"cubeduel/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	byName := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m.Data
		}
	}
	return byName
}

func int64Total(data metricdata.Aggregation) int64 {
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false
	mp := NewMetricsProvider(cfg)

	require.NoError(t, mp.Initialize(context.Background()))
	assert.False(t, mp.isEnabled())

	// Must not panic on nil instruments
	mp.RecordMatch(OutcomeOpened)
	mp.RecordSettlement(5, 1)
	require.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_RecordsBusEvents(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelServiceName = "cubeduel-test"

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.initializeWithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	bus := events.NewBus()
	mp.Subscribe(bus)

	ctx := context.Background()
	bus.Emit(ctx, events.CubeMatchOpenedEvent{MatchID: 1})
	bus.Emit(ctx, events.CubeThrowRecordedEvent{MatchID: 1})
	bus.Emit(ctx, events.CubeMatchSettledEvent{
		MatchID:    1,
		Stake:      decimal.NewFromInt(5),
		Commission: decimal.NewFromInt(1),
	})

	assert.Eventually(t, func() bool {
		data := collect(t, reader)
		return int64Total(data[MatchesTotal]) == 2 && int64Total(data[ThrowsTotal]) == 2
	}, time.Second, 10*time.Millisecond)

	data := collect(t, reader)
	commission, ok := data[CommissionTotal].(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, commission.DataPoints, 1)
	assert.Equal(t, 1.0, commission.DataPoints[0].Value)
}
