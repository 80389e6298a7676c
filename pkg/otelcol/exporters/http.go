package exporters

import (
	"context"
	"strings"
	"time"

	"lookbook-compensation/pkg/config"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
)

const exportTimeout = 10 * time.Second

// ProvideHttp builds an OTLP/HTTP span exporter for OTEL.ADDR. The address
// may carry a scheme; https turns transport security on.
func ProvideHttp(cfg *config.Config) (*otlptrace.Exporter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	return otlptrace.New(ctx, otlptracehttp.NewClient(httpOptions(cfg)...))
}

func httpOptions(cfg *config.Config) []otlptracehttp.Option {
	endpoint, secure := splitScheme(cfg.Otel.Addr)

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(exportTimeout),
		otlptracehttp.WithRetry(otlptracehttp.RetryConfig{
			Enabled:         true,
			InitialInterval: time.Second,
			MaxInterval:     5 * time.Second,
			MaxElapsedTime:  30 * time.Second,
		}),
	}
	if !secure && cfg.Otel.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.Otel.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(cfg.Otel.URLPath))
	}
	if len(cfg.Otel.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Otel.Headers))
	}
	return opts
}

func splitScheme(addr string) (endpoint string, secure bool) {
	switch {
	case strings.HasPrefix(addr, "https://"):
		return strings.TrimPrefix(addr, "https://"), true
	case strings.HasPrefix(addr, "http://"):
		return strings.TrimPrefix(addr, "http://"), false
	default:
		return addr, false
	}
}
