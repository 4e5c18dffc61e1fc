package cortex

import (
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/service/chunker"
	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/meta"
	"github.com/juicer-platform/cortex/service/tokenizer"
	"github.com/juicer-platform/cortex/tracing"
	"github.com/viant/afs/storage"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig sets the service configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithPathway registers a pathway in the catalog.
func WithPathway(pathway *model.Pathway) Option {
	return func(s *Service) { s.pathways = append(s.pathways, pathway) }
}

// WithModel registers a backend model in the catalog.
func WithModel(m *model.Model) Option {
	return func(s *Service) { s.models = append(s.models, m) }
}

// WithExecutor sets the model executor; the HTTP executor is used by default.
func WithExecutor(e executor.Service) Option {
	return func(s *Service) { s.executor = e }
}

// WithExecutorOptions lets the caller supply options for the default HTTP
// executor, e.g. a listener or client.
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) { s.executorOptions = append(s.executorOptions, opts...) }
}

// WithContextStore sets the saved context store.
func WithContextStore(store contextstore.Service) Option {
	return func(s *Service) { s.contexts = store }
}

// WithTokenizer sets the tokenizer.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(s *Service) { s.tokenizer = t }
}

// WithSplitter sets the chunk splitter.
func WithSplitter(splitter chunker.Splitter) Option {
	return func(s *Service) { s.splitter = splitter }
}

// WithMetaService sets the meta service used by LoadCatalog.
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) { s.metaService = service }
}

// WithMetaBaseURL sets the base URL of catalog resources.
func WithMetaBaseURL(url string) Option {
	return func(s *Service) { s.metaBaseURL = url }
}

// WithMetaFsOptions sets storage options of catalog resources, e.g. an embed.FS.
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) { s.metaFsOptions = options }
}

// WithTracing exports spans with the stdout exporter; it takes precedence
// over the tracing section of the config.
func WithTracing(config tracing.Config) Option {
	return func(s *Service) { s.tracing = &config }
}

// WithTracingExporter exports spans through a custom SpanExporter, e.g. OTLP.
func WithTracingExporter(config tracing.Config, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracing = &config
		s.spanExporter = exporter
	}
}
