package otel_test

import (
	"errors"
	"testing"

	"github.com/easyops/contextengine-go/pkg/otel"
)

func TestDefaultConfig(t *testing.T) {
	cfg := otel.DefaultConfig()

	if cfg.Enabled {
		t.Error("observability must be disabled by default")
	}
	if cfg.ServiceName != "contextengine" {
		t.Errorf("expected service name contextengine, got %q", cfg.ServiceName)
	}
	if cfg.Tracing.Exporter != otel.ExporterOTLPGRPC {
		t.Errorf("expected default exporter otlp-grpc, got %q", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("expected default sample rate 1.0, got %g", cfg.Tracing.SampleRate)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := otel.DefaultConfig()
	cfg.Tracing.SampleRate = 1.5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected sample rate validation error")
	}
	if !errors.Is(err, otel.ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate, got %v", err)
	}

	cfg.Tracing.SampleRate = -0.1
	if err := cfg.Validate(); !errors.Is(err, otel.ErrInvalidSampleRate) {
		t.Fatalf("expected ErrInvalidSampleRate for negative rate, got %v", err)
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := otel.Config{ServiceName: "custom"}.WithDefaults()

	if cfg.ServiceName != "custom" {
		t.Errorf("explicit service name overwritten: %q", cfg.ServiceName)
	}
	if cfg.ServiceVersion == "" {
		t.Error("expected default service version")
	}
	if cfg.Tracing.Endpoint == "" {
		t.Error("expected default tracing endpoint")
	}
	if cfg.Metrics.Interval == 0 {
		t.Error("expected default metrics interval")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default logging level info, got %q", cfg.Logging.Level)
	}
}
