package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// Only Shutdown is called on the error paths under test.
type closingMetricExporter struct {
	sdkmetric.Exporter
	closed *[]string
}

func (e closingMetricExporter) Shutdown(context.Context) error {
	*e.closed = append(*e.closed, "metric")
	return nil
}

type closingTraceExporter struct {
	sdktrace.SpanExporter
	closed *[]string
}

func (e closingTraceExporter) Shutdown(context.Context) error {
	*e.closed = append(*e.closed, "trace")
	return nil
}

// stubExporters replaces the exporter constructors. The log exporter always
// fails; the trace exporter fails when failTrace is set.
func stubExporters(t *testing.T, failTrace bool) *[]string {
	t.Helper()
	origMetric, origTrace, origLog := newMetricExporter, newTraceExporter, newLogExporter
	t.Cleanup(func() {
		newMetricExporter, newTraceExporter, newLogExporter = origMetric, origTrace, origLog
	})

	closed := &[]string{}
	newMetricExporter = func(context.Context, string, bool, grpc.DialOption) (sdkmetric.Exporter, error) {
		return closingMetricExporter{closed: closed}, nil
	}
	newTraceExporter = func(context.Context, string, bool, grpc.DialOption) (sdktrace.SpanExporter, error) {
		if failTrace {
			return nil, errors.New("dial failed")
		}
		return closingTraceExporter{closed: closed}, nil
	}
	newLogExporter = func(context.Context, string, bool, grpc.DialOption) (sdklog.Exporter, error) {
		return nil, errors.New("dial failed")
	}
	return closed
}

func TestSetup_PrometheusBridge(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := Setup(context.Background(), Options{
		ServiceName:    "ntfy-go",
		ServiceVersion: "test",
		Registerer:     reg,
	})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	assert.Nil(t, p.TracerProvider)
	assert.Nil(t, p.LogHandler)

	counter, err := p.MeterProvider.Meter("test").Int64Counter("bridge.test")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "bridge_test") {
			found = true
		}
	}
	assert.True(t, found, "otel counter should be exposed through the prometheus registry")
}

func TestSetup_WithOTLPEndpoint(t *testing.T) {
	// gRPC exporters connect lazily, so no collector is needed to build them.
	p, err := Setup(context.Background(), Options{
		ServiceName:    "ntfy-go",
		ServiceVersion: "test",
		OTLPEndpoint:   "http://127.0.0.1:4317",
		Registerer:     prometheus.NewRegistry(),
	})
	require.NoError(t, err)

	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.LoggerProvider)
	assert.NotNil(t, p.LogHandler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing against an absent collector may fail; it must not hang.
	_ = p.Shutdown(ctx)
}

func TestSetup_ExporterFailureClosesCreatedExporters(t *testing.T) {
	tests := []struct {
		name       string
		failTrace  bool
		wantErr    string
		wantClosed []string
	}{
		{"trace exporter fails", true, "otlp trace exporter", []string{"metric"}},
		{"log exporter fails", false, "otlp log exporter", []string{"trace", "metric"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			closed := stubExporters(t, tt.failTrace)

			_, err := Setup(context.Background(), Options{
				ServiceName:    "ntfy-go",
				ServiceVersion: "test",
				OTLPEndpoint:   "collector:4317",
				Registerer:     prometheus.NewRegistry(),
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantClosed, *closed)
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		insecure bool
		wantErr  bool
	}{
		{"collector:4317", "collector:4317", false, false},
		{"http://collector:4317", "collector:4317", true, false},
		{"https://collector:4317", "collector:4317", false, false},
		{"ftp://collector:4317", "", false, true},
		{"http://", "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, insecure, err := parseEndpoint(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}
