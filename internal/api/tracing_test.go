package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedEnv(t *testing.T) (*testEnv, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	env := newTestEnv(t, nil)
	env.server.tracer = provider.Tracer("artifactkit-api-test")
	env.handler = env.server.Handler()
	return env, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingContinuesIncomingTrace(t *testing.T) {
	env, recorder := tracedEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/enhance/filters", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if got := span.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace id = %s, want incoming trace", got)
	}
	if got := span.Parent().SpanID().String(); got != "00f067aa0ba902b7" {
		t.Fatalf("parent span = %s", got)
	}
	if v, ok := spanAttr(span, "http.status_code"); !ok || v.AsInt64() != http.StatusOK {
		t.Fatalf("http.status_code = %v (%v)", v.AsInt64(), ok)
	}
	if v, ok := spanAttr(span, "request.id"); !ok || v.AsString() != rec.Header().Get(requestIDHeader) {
		t.Fatalf("request.id = %q, header %q", v.AsString(), rec.Header().Get(requestIDHeader))
	}
	if span.Status().Code == codes.Error {
		t.Fatal("successful request marked as error")
	}
}

func TestTracingClientErrorIsNotSpanError(t *testing.T) {
	env, recorder := tracedEnv(t)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if v, _ := spanAttr(spans[0], "http.status_code"); v.AsInt64() != http.StatusNotFound {
		t.Fatalf("http.status_code = %d", v.AsInt64())
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("404 should not mark the span as failed")
	}
}
