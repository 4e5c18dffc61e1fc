package cortex

import (
	"context"
	"fmt"
	"sync"

	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/runtime/resolver"
	"github.com/juicer-platform/cortex/service/chunker"
	"github.com/juicer-platform/cortex/service/contextstore"
	cfs "github.com/juicer-platform/cortex/service/contextstore/fs"
	"github.com/juicer-platform/cortex/service/dispatcher"
	"github.com/juicer-platform/cortex/service/event"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/messaging/memory"
	"github.com/juicer-platform/cortex/service/meta"
	"github.com/juicer-platform/cortex/service/tokenizer"
	"github.com/juicer-platform/cortex/tracing"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Service wires the request registry, resolvers, the progress transport and
// the async dispatcher.
type Service struct {
	config          *Config
	pathways        []*model.Pathway
	models          []*model.Model
	executor        executor.Service
	executorOptions []executor.Option
	tokenizer       tokenizer.Tokenizer
	splitter        chunker.Splitter
	contexts        contextstore.Service
	metaService     *meta.Service
	metaBaseURL     string
	metaFsOptions   []storage.Option
	tracing         *tracing.Config
	spanExporter    sdktrace.SpanExporter

	mu         sync.RWMutex
	catalog    *model.Catalog
	registry   *request.Registry
	queue      *memory.Queue[event.Event[progress.Event]]
	publisher  *event.Publisher[progress.Event]
	broker     *event.Broker[progress.Event]
	listener   *event.Listener[progress.Event]
	dispatcher *dispatcher.Service
	cancel     context.CancelFunc
}

// New creates a service.
func New(options ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range options {
		opt(s)
	}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	catalog := s.config.Catalog.Clone()
	for _, m := range s.models {
		catalog.Models[m.Name] = m
	}
	for _, p := range s.pathways {
		catalog.Pathways[p.Name] = p
	}
	catalog.Init()
	s.config.Catalog = *catalog
	if err := s.config.Validate(); err != nil {
		return err
	}
	s.catalog = catalog

	if s.tracing == nil {
		s.tracing = s.config.Tracing
	}
	if err := s.initTracing(); err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	if s.tokenizer == nil {
		s.tokenizer = tokenizer.New()
	}
	if s.splitter == nil {
		s.splitter = chunker.New(s.tokenizer)
	}
	if s.executor == nil {
		opts := append([]executor.Option{executor.WithTokenizer(s.tokenizer), executor.WithConfig(s.config.Executor)}, s.executorOptions...)
		s.executor = executor.NewHTTP(opts...)
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.contexts == nil {
		contexts, err := s.newContextStore()
		if err != nil {
			return err
		}
		s.contexts = contexts
	}

	s.registry = request.NewRegistry(s.config.Registry)
	s.queue = memory.NewQueue[event.Event[progress.Event]](s.config.Events)
	s.publisher = event.NewPublisher[progress.Event](s.queue)
	s.broker = event.NewBroker[progress.Event](func(e *event.Event[progress.Event]) bool { return e.Data.Final() })
	s.listener = event.NewListener[progress.Event](s.publisher, s.broker.Handle)
	var err error
	s.dispatcher, err = dispatcher.New(
		dispatcher.WithRegistry(s.registry),
		dispatcher.WithConfig(s.config.Dispatcher),
	)
	return err
}

func (s *Service) initTracing() error {
	switch {
	case s.tracing == nil:
		return nil
	case s.spanExporter != nil:
		return tracing.Install(*s.tracing, s.spanExporter)
	}
	return tracing.Init(*s.tracing)
}

func (s *Service) newContextStore() (contextstore.Service, error) {
	if s.config.ContextStore.Kind != ContextStoreFS {
		return contextstore.NewMemory(), nil
	}
	dao, err := cfs.New(context.Background(), afs.New(), s.config.ContextStore.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create context store: %w", err)
	}
	return contextstore.New(dao), nil
}

// Catalog returns the current catalog.
func (s *Service) Catalog() *model.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Registry returns the request registry.
func (s *Service) Registry() *request.Registry {
	return s.registry
}

// LoadCatalog reads models and pathways from a YAML or JSON resource
// relative to the meta base URL and merges them into the catalog.
func (s *Service) LoadCatalog(ctx context.Context, location string) error {
	loaded := &model.Catalog{}
	if err := s.metaService.Load(ctx, location, loaded); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.catalog.Clone()
	if loaded.DefaultModelName != "" {
		merged.DefaultModelName = loaded.DefaultModelName
	}
	for name, m := range loaded.Models {
		merged.Models[name] = m
	}
	for name, p := range loaded.Pathways {
		merged.Pathways[name] = p
	}
	merged.Init()
	if err := merged.Validate(); err != nil {
		return fmt.Errorf("invalid catalog %v: %w", location, err)
	}
	s.catalog = merged
	return nil
}

// NewResolver creates a resolver with a fresh request id for the named
// pathway.
func (s *Service) NewResolver(pathwayName string) (*resolver.Resolver, error) {
	catalog := s.Catalog()
	pathway, err := catalog.Pathway(pathwayName)
	if err != nil {
		return nil, err
	}
	return resolver.New(pathway,
		resolver.WithExecutor(s.executor),
		resolver.WithCatalog(catalog),
		resolver.WithTokenizer(s.tokenizer),
		resolver.WithSplitter(s.splitter),
		resolver.WithContextStore(s.contexts),
		resolver.WithRegistry(s.registry),
		resolver.WithPublisher(s.publisher),
	)
}

// Resolve runs a request of the named pathway. Async and stream requests
// return the request id; Subscribe starts them.
func (s *Service) Resolve(ctx context.Context, pathwayName string, args *model.Args) (*resolver.Response, error) {
	r, err := s.NewResolver(pathwayName)
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, args)
}

// Cancel marks a request canceled. Running units finish; pending ones are
// skipped. Cancel is idempotent.
func (s *Service) Cancel(requestID string) {
	s.registry.Cancel(requestID)
}

// Progress returns the unit counters of a request.
func (s *Service) Progress(requestID string) (progress.Snapshot, error) {
	state := s.registry.Get(requestID)
	if state == nil {
		return progress.Snapshot{}, request.ErrNotFound
	}
	return state.Progress.Snapshot(), nil
}

// Subscribe registers handler for the progress events of requestID and
// starts the deferred request. The returned function unsubscribes; handlers
// are released after the terminal event.
func (s *Service) Subscribe(ctx context.Context, requestID string, handler event.Handler[progress.Event]) (func(), error) {
	state := s.registry.Get(requestID)
	if state == nil {
		return nil, fmt.Errorf("request %v: %w", requestID, request.ErrNotFound)
	}
	unsubscribe := s.broker.Subscribe(requestID, handler)
	if !state.Deferred() {
		return unsubscribe, nil
	}
	if err := s.dispatcher.Submit(ctx, requestID); err != nil {
		unsubscribe()
		return nil, err
	}
	return unsubscribe, nil
}

// Start launches the registry janitor, the event listener and the
// dispatcher workers.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	s.registry.Start(ctx)
	s.listener.Start(ctx)
	return s.dispatcher.Start(ctx)
}

// Shutdown stops the workers and the event listener, then flushes spans
// when this service installed tracing.
func (s *Service) Shutdown(ctx context.Context) error {
	s.dispatcher.Shutdown()
	s.listener.Stop()
	s.queue.Close()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	if s.tracing != nil {
		return tracing.Shutdown(ctx)
	}
	return nil
}
