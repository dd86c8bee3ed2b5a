package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/gaborage/apiclient/logger"
)

const (
	instrumentationName = "github.com/gaborage/apiclient/httpclient"

	spanName = "apiclient.request"

	metricRequests = "apiclient.requests"
	metricDuration = "apiclient.request.duration"
	metricRetries  = "apiclient.request.retries"

	attrMethod        = "http.request.method"
	attrPath          = "url.path"
	attrStatus        = "http.response.status_code"
	attrOutcome       = "apiclient.outcome"
	attrErrorKind     = "error.type"
	attrCorrelationID = "apiclient.request_id"
	attrAttempt       = "apiclient.attempt"
	attrBusinessCode  = "apiclient.business_code"
)

// Outcome values recorded on metrics and spans
const (
	OutcomeSuccess  = "success"
	OutcomeBusiness = "business_failure"
	OutcomeFatal    = "fatal"
)

var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10, 30,
}

// telemetry holds one client's instruments. Nil instruments are skipped.
type telemetry struct {
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
	retries  metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, log logger.Logger) *telemetry {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}

	meter := mp.Meter(instrumentationName)
	t := &telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.requests, err = meter.Int64Counter(
		metricRequests,
		metric.WithDescription("Completed API client calls by outcome"),
		metric.WithUnit("{call}"),
	)
	logMetricError(log, metricRequests, err)

	t.duration, err = meter.Float64Histogram(
		metricDuration,
		metric.WithDescription("Duration of API client calls, retries included"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(log, metricDuration, err)

	t.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Retried API client attempts"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(log, metricRetries, err)

	return t
}

func logMetricError(log logger.Logger, name string, err error) {
	if err != nil {
		log.Warn().Err(err).Str("metric", name).Msg("Failed to initialize API client metric")
	}
}

func (t *telemetry) start(ctx context.Context, cl *call) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrMethod, string(cl.method)),
			attribute.String(attrPath, cl.path),
			attribute.String(attrCorrelationID, cl.correlationID),
		),
	)
}

func (t *telemetry) retry(ctx context.Context, cl *call, attempt int, delay time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(
		attribute.Int(attrAttempt, attempt+1),
		attribute.Int64("apiclient.backoff_ms", delay.Milliseconds()),
	))
	if t.retries != nil {
		t.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrMethod, string(cl.method))))
	}
}

// finish ends the span and records the call's metrics.
func (t *telemetry) finish(ctx context.Context, span trace.Span, cl *call, elapsed time.Duration, resp *Response, err error) {
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String(attrMethod, string(cl.method))}

	switch {
	case resp != nil && resp.OK():
		attrs = append(attrs, attribute.String(attrOutcome, OutcomeSuccess))
		span.SetAttributes(attribute.Int(attrStatus, resp.Status), attribute.Int(attrAttempt, resp.Attempts))
		span.SetStatus(codes.Ok, "")
	case resp != nil:
		attrs = append(attrs, attribute.String(attrOutcome, OutcomeBusiness))
		span.SetAttributes(
			attribute.Int(attrStatus, resp.Status),
			attribute.Int(attrAttempt, resp.Attempts),
			attribute.String(attrBusinessCode, resp.Business.Code),
		)
	default:
		kind := KindUnknown
		if apiErr, ok := AsError(err); ok {
			kind = apiErr.Kind
			if apiErr.Status != 0 {
				span.SetAttributes(attribute.Int(attrStatus, apiErr.Status))
			}
			span.SetAttributes(attribute.Int(attrAttempt, apiErr.Attempts))
		}
		attrs = append(attrs, attribute.String(attrOutcome, OutcomeFatal), attribute.String(attrErrorKind, string(kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
	}

	span.SetAttributes(attrs[1:]...)
	if t.requests != nil {
		t.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
}
