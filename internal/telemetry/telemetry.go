// Package telemetry installs the global OpenTelemetry providers.
//
// Metrics always flow into the Prometheus registry served on /metrics. When
// an OTLP endpoint is configured, traces, metrics and logs are additionally
// exported over gRPC.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// Options configures Setup.
type Options struct {
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint is host:port or a URL. Empty disables OTLP export.
	OTLPEndpoint string
	// Insecure disables TLS towards the collector. An http:// endpoint
	// implies it.
	Insecure bool

	// Registerer receives the OpenTelemetry metrics bridge.
	Registerer prometheus.Registerer
}

// Providers holds what Setup installed.
type Providers struct {
	MeterProvider  *sdkmetric.MeterProvider
	TracerProvider *sdktrace.TracerProvider // nil without OTLP
	LoggerProvider *sdklog.LoggerProvider   // nil without OTLP

	// LogHandler bridges slog records to the OTLP log exporter. Nil without OTLP.
	LogHandler slog.Handler

	shutdowns []func(context.Context) error
}

// Setup creates the providers and registers them globally.
func Setup(ctx context.Context, opts Options) (*Providers, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	promExporter, err := otelprom.New(otelprom.WithRegisterer(opts.Registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	p := &Providers{}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if opts.OTLPEndpoint != "" {
		endpoint, insecure, err := parseEndpoint(opts.OTLPEndpoint)
		if err != nil {
			return nil, err
		}
		insecure = insecure || opts.Insecure
		dial := grpc.WithUserAgent(opts.ServiceName + "/" + opts.ServiceVersion)

		exp, err := newOTLPExporters(ctx, endpoint, insecure, dial)
		if err != nil {
			return nil, err
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric)))

		p.TracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp.trace),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(p.TracerProvider)
		p.shutdowns = append(p.shutdowns, p.TracerProvider.Shutdown)

		p.LoggerProvider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exp.log)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(p.LoggerProvider)
		p.LogHandler = otelslog.NewHandler(opts.ServiceName, otelslog.WithLoggerProvider(p.LoggerProvider))
		p.shutdowns = append(p.shutdowns, p.LoggerProvider.Shutdown)
	}

	p.MeterProvider = sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(p.MeterProvider)
	p.shutdowns = append(p.shutdowns, p.MeterProvider.Shutdown)

	return p, nil
}

// Shutdown flushes and stops every provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type otlpExporters struct {
	metric sdkmetric.Exporter
	trace  sdktrace.SpanExporter
	log    sdklog.Exporter
}

var (
	newMetricExporter = func(ctx context.Context, endpoint string, insecure bool, dial grpc.DialOption) (sdkmetric.Exporter, error) {
		return otlpmetricgrpc.New(ctx, metricOptions(endpoint, insecure, dial)...)
	}
	newTraceExporter = func(ctx context.Context, endpoint string, insecure bool, dial grpc.DialOption) (sdktrace.SpanExporter, error) {
		return otlptracegrpc.New(ctx, traceOptions(endpoint, insecure, dial)...)
	}
	newLogExporter = func(ctx context.Context, endpoint string, insecure bool, dial grpc.DialOption) (sdklog.Exporter, error) {
		return otlploggrpc.New(ctx, logOptions(endpoint, insecure, dial)...)
	}
)

// newOTLPExporters creates the three gRPC exporters. If one fails, the ones
// already created are shut down so their connections are closed.
func newOTLPExporters(ctx context.Context, endpoint string, insecure bool, dial grpc.DialOption) (*otlpExporters, error) {
	var created []func(context.Context) error
	fail := func(what string, err error) (*otlpExporters, error) {
		for i := len(created) - 1; i >= 0; i-- {
			_ = created[i](ctx)
		}
		return nil, fmt.Errorf("creating otlp %s exporter: %w", what, err)
	}

	var (
		exp otlpExporters
		err error
	)
	if exp.metric, err = newMetricExporter(ctx, endpoint, insecure, dial); err != nil {
		return fail("metric", err)
	}
	created = append(created, exp.metric.Shutdown)

	if exp.trace, err = newTraceExporter(ctx, endpoint, insecure, dial); err != nil {
		return fail("trace", err)
	}
	created = append(created, exp.trace.Shutdown)

	if exp.log, err = newLogExporter(ctx, endpoint, insecure, dial); err != nil {
		return fail("log", err)
	}
	return &exp, nil
}

func metricOptions(endpoint string, insecure bool, dial grpc.DialOption) []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithDialOption(dial),
	}
	if insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return opts
}

func traceOptions(endpoint string, insecure bool, dial grpc.DialOption) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(dial),
	}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return opts
}

func logOptions(endpoint string, insecure bool, dial grpc.DialOption) []otlploggrpc.Option {
	opts := []otlploggrpc.Option{
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithDialOption(dial),
	}
	if insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	return opts
}

// parseEndpoint accepts "host:port", "http://host:port" or "https://host:port"
// and returns host:port plus whether the scheme asked for plaintext.
func parseEndpoint(raw string) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, false, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parsing otlp endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("otlp endpoint %q has no host", raw)
	}
	switch u.Scheme {
	case "http":
		return u.Host, true, nil
	case "https":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("otlp endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
}
