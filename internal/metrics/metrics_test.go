package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewBuildsEveryInstrument(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	inst, err := New(meter)
	require.NoError(t, err)

	require.NotNil(t, inst.ConnectionsActive)
	require.NotNil(t, inst.RoomsActive)
	require.NotNil(t, inst.ConnectionsTotal)
	require.NotNil(t, inst.MessagesReceived)
	require.NotNil(t, inst.MessagesSent)
	require.NotNil(t, inst.MessagesByType)
	require.NotNil(t, inst.HTTPRequestsTotal)
	require.NotNil(t, inst.AIRequestsTotal)
	require.NotNil(t, inst.AIErrorsTotal)
	require.NotNil(t, inst.AITokensTotal)
	require.NotNil(t, inst.MessageLatency)
	require.NotNil(t, inst.HTTPLatency)
	require.NotNil(t, inst.AILatency)
	require.NotNil(t, inst.MessageSize)
}

func TestRecordHTTPRequestDoesNotPanic(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	inst, err := New(meter)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		inst.RecordHTTPRequest(context.Background(), "GET", "/health", 0.01)
	})
}
