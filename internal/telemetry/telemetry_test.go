package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func serviceName(t *testing.T, cfg Config) string {
	t.Helper()
	res, err := newResource(cfg)
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	v, ok := res.Set().Value(attribute.Key(semconv.ServiceNameKey))
	if !ok {
		t.Fatal("service.name missing from resource")
	}
	return v.AsString()
}

func TestNewResource_DefaultServiceName(t *testing.T) {
	if got := serviceName(t, Config{}); got != DefaultServiceName {
		t.Errorf("service.name = %q, want %q", got, DefaultServiceName)
	}
}

func TestNewResource_Override(t *testing.T) {
	if got := serviceName(t, Config{ServiceName: "possync-dev"}); got != "possync-dev" {
		t.Errorf("service.name = %q, want possync-dev", got)
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := newSampler(tt.ratio).Description()
		if !strings.Contains(desc, tt.want) {
			t.Errorf("newSampler(%v) = %q, want it to contain %q", tt.ratio, desc, tt.want)
		}
	}
}

func TestWrapShutdown(t *testing.T) {
	err := wrapShutdown("trace provider", func(context.Context) error { return errors.New("boom") })(context.Background())
	if err == nil || !strings.Contains(err.Error(), "trace provider shutdown: boom") {
		t.Errorf("err = %v", err)
	}
	if err := wrapShutdown("x", func(context.Context) error { return nil })(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNoopShutdown(t *testing.T) {
	if err := noopShutdown(context.Background()); err != nil {
		t.Errorf("noopShutdown returned %v", err)
	}
}
