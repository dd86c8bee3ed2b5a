// Package testing provides in-memory OpenTelemetry providers and assertions
// for API client instrumentation tests.
//
// Usage:
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	client, _ := httpclient.New(httpclient.Config{
//	    BaseURL:        srv.URL,
//	    TracerProvider: tp,
//	    MeterProvider:  mp,
//	})
//
//	_, _ = client.Do(ctx, http.MethodGet, "/polls", nil)
//
//	span := NewSpanCollector(t, tp.Exporter).WithName("apiclient.request").First()
//	AssertSpanAttribute(t, &span, "apiclient.outcome", "success")
//	AssertMetricValue(t, mp.Collect(t), "apiclient.requests", 1)
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	attrValueMismatchErrMsg   = "attribute %s value mismatch"
	metricNotFoundErrMsg      = "metric %s not found"
	metricValueMismatchErrMsg = "metric %s value mismatch"
)

// TestTraceProvider wraps the SDK TracerProvider and an in-memory exporter.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider exports spans synchronously so they are visible as
// soon as they end.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and a manual reader.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider collected on demand via Collect.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics recorded so far.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// SpanCollector filters captured spans fluently.
type SpanCollector struct {
	t     *testing.T
	spans tracetest.SpanStubs
}

func NewSpanCollector(t *testing.T, exporter *tracetest.InMemoryExporter) *SpanCollector {
	t.Helper()
	return &SpanCollector{t: t, spans: exporter.GetSpans()}
}

func (sc *SpanCollector) Len() int {
	return len(sc.spans)
}

func (sc *SpanCollector) WithName(name string) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool { return s.Name == name })
}

// WithAttribute keeps spans carrying key with the given string, int or bool value.
func (sc *SpanCollector) WithAttribute(key string, value any) *SpanCollector {
	return sc.filter(func(s *tracetest.SpanStub) bool {
		for _, attr := range s.Attributes {
			if attr.Key == attribute.Key(key) && matchesValue(attr.Value, value) {
				return true
			}
		}
		return false
	})
}

func (sc *SpanCollector) filter(keep func(*tracetest.SpanStub) bool) *SpanCollector {
	filtered := make(tracetest.SpanStubs, 0, len(sc.spans))
	for i := range sc.spans {
		if keep(&sc.spans[i]) {
			filtered = append(filtered, sc.spans[i])
		}
	}
	return &SpanCollector{t: sc.t, spans: filtered}
}

// First fails the test when the collection is empty.
func (sc *SpanCollector) First() tracetest.SpanStub {
	sc.t.Helper()
	require.NotEmpty(sc.t, sc.spans, "no spans in collection")
	return sc.spans[0]
}

func (sc *SpanCollector) AssertCount(expected int) *SpanCollector {
	sc.t.Helper()
	assert.Len(sc.t, sc.spans, expected, "unexpected number of spans")
	return sc
}

func matchesValue(v attribute.Value, expected any) bool {
	switch e := expected.(type) {
	case string:
		return v.AsString() == e
	case int:
		return v.AsInt64() == int64(e)
	case int64:
		return v.AsInt64() == e
	case bool:
		return v.AsBool() == e
	default:
		return false
	}
}

// AssertSpanAttribute asserts that span has key set to expected.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, key string, expected any) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) != key {
			continue
		}
		switch v := expected.(type) {
		case string:
			assert.Equal(t, v, attr.Value.AsString(), attrValueMismatchErrMsg, key)
		case int:
			assert.Equal(t, int64(v), attr.Value.AsInt64(), attrValueMismatchErrMsg, key)
		case int64:
			assert.Equal(t, v, attr.Value.AsInt64(), attrValueMismatchErrMsg, key)
		case bool:
			assert.Equal(t, v, attr.Value.AsBool(), attrValueMismatchErrMsg, key)
		default:
			t.Fatalf("unsupported attribute value type: %T", expected)
		}
		return
	}
	t.Errorf("attribute %s not found in span", key)
}

// AssertSpanStatus asserts the status code of a span.
func AssertSpanStatus(t *testing.T, span *tracetest.SpanStub, expected codes.Code) {
	t.Helper()
	assert.Equal(t, expected, span.Status.Code, "span status code mismatch")
}

// AssertSpanError asserts an error status and, when given, its description.
func AssertSpanError(t *testing.T, span *tracetest.SpanStub, expectedDesc string) {
	t.Helper()
	assert.Equal(t, codes.Error, span.Status.Code, "expected error status")
	if expectedDesc != "" {
		assert.Equal(t, expectedDesc, span.Status.Description, "span error description mismatch")
	}
}

// SpanEventNames lists the event names recorded on span in order.
func SpanEventNames(span *tracetest.SpanStub) []string {
	names := make([]string, 0, len(span.Events))
	for _, e := range span.Events {
		names = append(names, e.Name)
	}
	return names
}

// FindMetric returns nil when no metric is named metricName.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// AssertMetricValue asserts the total of a counter across all attribute sets,
// or the total observation count of a histogram.
func AssertMetricValue(t *testing.T, rm metricdata.ResourceMetrics, metricName string, expected int) {
	t.Helper()
	m := FindMetric(rm, metricName)
	require.NotNil(t, m, metricNotFoundErrMsg, metricName)

	var total int64
	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		for _, dp := range data.DataPoints {
			total += dp.Value
		}
	case metricdata.Histogram[float64]:
		for _, dp := range data.DataPoints {
			total += int64(dp.Count)
		}
	case metricdata.Histogram[int64]:
		for _, dp := range data.DataPoints {
			total += int64(dp.Count)
		}
	default:
		t.Fatalf("unsupported metric data type: %T", m.Data)
	}
	assert.Equal(t, int64(expected), total, metricValueMismatchErrMsg, metricName)
}
