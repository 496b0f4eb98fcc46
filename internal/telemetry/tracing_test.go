package telemetry

import (
	"context"
	"testing"

	"github.com/dunamismax/artifactkit/internal/config"
	"github.com/dunamismax/artifactkit/internal/logging"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{Exporter: "none"}, "api", logging.Nop())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := SetupTracing(context.Background(), config.TracingConfig{Exporter: "zipkin"}, "api", logging.Nop()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := SetupTracing(context.Background(), config.TracingConfig{Exporter: "otlp"}, "api", logging.Nop()); err == nil {
		t.Fatal("expected missing endpoint error")
	}
}
