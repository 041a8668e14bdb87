package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ncecere/open_embedding_server/internal/config"
)

const metricsNamespace = "embedding_server"

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
	promHandler    http.Handler
	shutdownFuncs  []func(context.Context) error

	httpRequestCounter *promreg.CounterVec
	httpRequestLatency *promreg.HistogramVec
	inferenceLatency   *promreg.HistogramVec
	inferenceInputs    *promreg.CounterVec
	tokensCounter      *promreg.CounterVec
}

// Setup wires tracing and metrics. It returns a nil Provider when both are
// disabled; every method is safe on a nil receiver.
func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	if !cfg.EnableOTLP && !cfg.EnableMetrics {
		return nil, nil
	}

	provider := &Provider{}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "open-embedding-server"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.EnableOTLP {
		endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		opts := []otlptracegrpc.Option{}
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			opts = append(opts, otlptracegrpc.WithInsecure())
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.tracerProvider = tp
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.EnableMetrics {
		if err := provider.setupMetrics(res); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	registry := promreg.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return err
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(promExporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	p.meterProvider = mp
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	p.shutdownFuncs = append(p.shutdownFuncs, mp.Shutdown)

	latencyBuckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	p.httpRequestCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	p.httpRequestLatency = promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   latencyBuckets,
		},
		[]string{"method", "route", "status"},
	)
	p.inferenceLatency = promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "inference_duration_seconds",
			Help:      "Duration of embedding inference calls.",
			Buckets:   latencyBuckets,
		},
		[]string{"model", "backend", "status"},
	)
	p.inferenceInputs = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inference_inputs_total",
			Help:      "Total input texts embedded.",
		},
		[]string{"model", "backend"},
	)
	p.tokensCounter = promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_total",
			Help:      "Total prompt tokens processed.",
		},
		[]string{"model", "backend"},
	)
	for _, collector := range []promreg.Collector{
		p.httpRequestCounter, p.httpRequestLatency, p.inferenceLatency, p.inferenceInputs, p.tokensCounter,
	} {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	if p == nil {
		return nil
	}
	return p.tracerProvider
}

func (p *Provider) RecordHTTPRequest(_ context.Context, method, route string, status int, duration time.Duration) {
	if p == nil {
		return
	}

	statusLabel := strconv.Itoa(status)

	if p.httpRequestCounter != nil {
		p.httpRequestCounter.WithLabelValues(method, route, statusLabel).Inc()
	}

	if p.httpRequestLatency != nil {
		p.httpRequestLatency.WithLabelValues(method, route, statusLabel).Observe(duration.Seconds())
	}
}

// RecordInference observes one inference call. status is "ok" or "error".
func (p *Provider) RecordInference(model, backend, status string, inputs int, duration time.Duration) {
	if p == nil || p.inferenceLatency == nil {
		return
	}
	p.inferenceLatency.WithLabelValues(model, backend, status).Observe(duration.Seconds())
	if status == "ok" && inputs > 0 {
		p.inferenceInputs.WithLabelValues(model, backend).Add(float64(inputs))
	}
}

func (p *Provider) RecordTokens(model, backend string, promptTokens int64) {
	if p == nil || p.tokensCounter == nil || promptTokens <= 0 {
		return
	}
	p.tokensCounter.WithLabelValues(model, backend).Add(float64(promptTokens))
}
