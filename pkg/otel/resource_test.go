package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"AttendanceBot/config"
)

func TestConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Environment:     "production",
		OTelEndpoint:    "http://collector:4317",
		OTelSampleRatio: 0.5,
		ServiceVersion:  "1.2.3",
	}

	got := ConfigFrom(cfg, "attendance-bot-worker")

	assert.Equal(t, Config{
		ServiceName:    "attendance-bot-worker",
		ServiceVersion: "1.2.3",
		Environment:    "production",
		OTLPEndpoint:   "http://collector:4317",
		SampleRatio:    0.5,
	}, got)
	assert.Equal(t, "collector:4317", trimScheme(got.OTLPEndpoint))
}

func TestServiceAttributes(t *testing.T) {
	attrs := GetServiceAttributes("attendance-bot", "dev", "development")
	assert.Contains(t, attrs, semconv.ServiceNamespace("attendancebot"))
	assert.Contains(t, attrs, semconv.ServiceName("attendance-bot"))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		n   string
		cfg Config
		e   string
	}{
		{"development samples everything", Config{Environment: "development", SampleRatio: 0.2}, "ParentBased{root:AlwaysOnSampler"},
		{"production default", Config{Environment: "production"}, "ParentBased{root:TraceIDRatioBased{0.1}"},
		{"production ratio", Config{Environment: "production", SampleRatio: 0.25}, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		t.Run(tt.n, func(t *testing.T) {
			assert.Contains(t, sampler(tt.cfg).Description(), tt.e)
		})
	}
}
