package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/juicer-platform/cortex"

// Kind classifies a span by its role in request processing.
type Kind int

const (
	// Internal spans cover resolver stages.
	Internal Kind = iota
	// Client spans wrap calls to model backends.
	Client
	// Producer spans wrap publishing to a queue.
	Producer
	// Consumer spans wrap work taken from a queue.
	Consumer
)

func (k Kind) spanKind() trace.SpanKind {
	switch k {
	case Client:
		return trace.SpanKindClient
	case Producer:
		return trace.SpanKindProducer
	case Consumer:
		return trace.SpanKindConsumer
	}
	return trace.SpanKindInternal
}

// Config selects where spans are exported.
type Config struct {
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	// OutputFile receives spans as JSON; stdout when empty.
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("tracing.serviceName is required")
	}
	return nil
}

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// Init installs a provider with the stdout exporter writing to
// config.OutputFile. An installed provider is kept until Shutdown.
func Init(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	var w io.Writer = os.Stdout
	if config.OutputFile != "" {
		f, err := os.Create(config.OutputFile)
		if err != nil {
			return fmt.Errorf("failed to create span file: %w", err)
		}
		w = f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return Install(config, exporter)
}

// Install installs a provider exporting through exporter, e.g. OTLP.
func Install(config Config, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if provider != nil {
		return nil
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.Version),
		),
	)
	if err != nil {
		return err
	}
	provider = sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return nil
}

// Shutdown flushes and releases the installed provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	p := provider
	provider = nil
	mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Shutdown(ctx)
}

// Span wraps an OpenTelemetry span; a nil *Span is a no-op.
type Span struct {
	span trace.Span
}

// Start opens a span as a child of the span carried by ctx. The parent ids
// are copied to attributes so exported lines can be joined without the
// collector.
func Start(ctx context.Context, name string, kind Kind) (context.Context, *Span) {
	parent := trace.SpanFromContext(ctx).SpanContext()
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(kind.spanKind()))
	if parent.IsValid() {
		span.SetAttributes(
			attribute.String("parent.trace_id", parent.TraceID().String()),
			attribute.String("parent.span_id", parent.SpanID().String()),
		)
	}
	return ctx, &Span{span: span}
}

// Request tags the span with the request id and pathway name.
func (s *Span) Request(requestID, pathway string) *Span {
	if s == nil {
		return s
	}
	s.span.SetAttributes(
		attribute.String("cortex.request.id", requestID),
		attribute.String("cortex.pathway", pathway),
	)
	return s
}

// Set attaches one attribute. int, bool and float64 values keep their type;
// anything else is formatted.
func (s *Span) Set(key string, value interface{}) *Span {
	if s == nil {
		return s
	}
	switch actual := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, actual))
	case int:
		s.span.SetAttributes(attribute.Int(key, actual))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, actual))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, actual))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprint(actual)))
	}
	return s
}

// HTTPStatus records a backend response code; 4xx and 5xx mark the span
// failed.
func (s *Span) HTTPStatus(code int) {
	if s == nil {
		return
	}
	s.span.SetAttributes(attribute.Int("http.status_code", code))
	if code >= 400 {
		s.span.SetStatus(codes.Error, "http status "+strconv.Itoa(code))
	}
}

// End records err, if any, and ends the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}
