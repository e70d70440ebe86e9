// Package metrics defines the Gateway Core's instrument names as
// go.opentelemetry.io/otel/metric instruments, using the global noop
// meter provider until a real exporter is configured — matching the
// Provider Runtime's telemetry package's noop-first posture.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func attributeString(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// Instruments holds every metric named in the external interfaces
// contract. Scraping transport is out of scope; these exist to be
// incremented/observed from Gateway Core code paths.
type Instruments struct {
	ConnectionsActive metric.Int64UpDownCounter
	RoomsActive       metric.Int64UpDownCounter

	ConnectionsTotal  metric.Int64Counter
	MessagesReceived  metric.Int64Counter
	MessagesSent      metric.Int64Counter
	MessagesByType    metric.Int64Counter
	HTTPRequestsTotal metric.Int64Counter
	AIRequestsTotal   metric.Int64Counter
	AIErrorsTotal     metric.Int64Counter
	AITokensTotal     metric.Int64Counter

	MessageLatency metric.Float64Histogram
	HTTPLatency    metric.Float64Histogram
	AILatency      metric.Float64Histogram
	MessageSize    metric.Float64Histogram
}

// New builds Instruments against meter. Pass
// otel.GetMeterProvider().Meter("nexis-gateway") for a real exporter, or
// noop.NewMeterProvider().Meter("nexis-gateway") for the default no-op
// posture.
func New(meter metric.Meter) (*Instruments, error) {
	var err error
	i := &Instruments{}

	i.ConnectionsActive, err = meter.Int64UpDownCounter("nexis_connections_active")
	if err != nil {
		return nil, err
	}
	i.RoomsActive, err = meter.Int64UpDownCounter("nexis_rooms_active")
	if err != nil {
		return nil, err
	}
	i.ConnectionsTotal, err = meter.Int64Counter("nexis_connections_total")
	if err != nil {
		return nil, err
	}
	i.MessagesReceived, err = meter.Int64Counter("nexis_messages_received_total")
	if err != nil {
		return nil, err
	}
	i.MessagesSent, err = meter.Int64Counter("nexis_messages_sent_total")
	if err != nil {
		return nil, err
	}
	i.MessagesByType, err = meter.Int64Counter("nexis_messages_by_type")
	if err != nil {
		return nil, err
	}
	i.HTTPRequestsTotal, err = meter.Int64Counter("nexis_http_requests_total")
	if err != nil {
		return nil, err
	}
	i.AIRequestsTotal, err = meter.Int64Counter("nexis_ai_requests_total")
	if err != nil {
		return nil, err
	}
	i.AIErrorsTotal, err = meter.Int64Counter("nexis_ai_errors_total")
	if err != nil {
		return nil, err
	}
	i.AITokensTotal, err = meter.Int64Counter("nexis_ai_tokens_total")
	if err != nil {
		return nil, err
	}
	i.MessageLatency, err = meter.Float64Histogram("nexis_message_latency_seconds")
	if err != nil {
		return nil, err
	}
	i.HTTPLatency, err = meter.Float64Histogram("nexis_http_latency_seconds")
	if err != nil {
		return nil, err
	}
	i.AILatency, err = meter.Float64Histogram("nexis_ai_latency_seconds")
	if err != nil {
		return nil, err
	}
	i.MessageSize, err = meter.Float64Histogram("nexis_message_size_bytes")
	if err != nil {
		return nil, err
	}
	return i, nil
}

// RecordHTTPRequest is a small helper used by the HTTP middleware to
// record the method/path-labeled request counter and latency.
func (i *Instruments) RecordHTTPRequest(ctx context.Context, method, path string, seconds float64) {
	attrs := metric.WithAttributes(
		attributeString("method", method),
		attributeString("path", path),
	)
	i.HTTPRequestsTotal.Add(ctx, 1, attrs)
	i.HTTPLatency.Record(ctx, seconds, attrs)
}
