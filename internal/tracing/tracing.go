package tracing

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"
	appconfig "github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// sampler samples every trace unless rate is a fraction in (0, 1)
func sampler(rate float64) *jaegercfg.SamplerConfig {
	if rate > 0 && rate < 1 {
		return &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeProbabilistic, Param: rate}
	}
	return &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1}
}

// InitTracer installs a Jaeger tracer as the global tracer. When tracing is
// disabled the global no-op tracer stays in place.
func InitTracer(cfg appconfig.TracingConfig) (io.Closer, error) {
	if !cfg.Enabled {
		return nopCloser{}, nil
	}

	jcfg := jaegercfg.Configuration{
		ServiceName: cfg.ServiceName,
		Sampler:     sampler(cfg.SampleRate),
		Reporter: &jaegercfg.ReporterConfig{
			CollectorEndpoint:   cfg.Endpoint,
			BufferFlushInterval: time.Second,
		},
	}

	tracer, closer, err := jcfg.NewTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

// Start opens a span as a child of whatever span ctx carries
func Start(ctx context.Context, operation string, tags ...opentracing.Tag) (opentracing.Span, context.Context) {
	opts := make([]opentracing.StartSpanOption, len(tags))
	for i, t := range tags {
		opts[i] = t
	}
	return opentracing.StartSpanFromContext(ctx, operation, opts...)
}

// Fail marks span as errored and records err
func Fail(span opentracing.Span, err error) {
	if err == nil {
		return
	}
	ext.Error.Set(span, true)
	span.LogFields(log.Error(err))
}
