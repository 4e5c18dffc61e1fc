package resolver

import (
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/chunker"
	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/tokenizer"
)

// Option customises a Resolver.
type Option func(r *Resolver)

// WithExecutor sets the model executor; required.
func WithExecutor(e executor.Service) Option {
	return func(r *Resolver) { r.executor = e }
}

// WithModel sets the backend model explicitly.
func WithModel(m *model.Model) Option {
	return func(r *Resolver) { r.model = m }
}

// WithCatalog sets the catalog used to resolve the pathway model and the
// summary pathway.
func WithCatalog(c *model.Catalog) Option {
	return func(r *Resolver) { r.catalog = c }
}

// WithTokenizer sets the tokenizer.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(r *Resolver) { r.tokenizer = t }
}

// WithSplitter sets the chunk splitter.
func WithSplitter(s chunker.Splitter) Option {
	return func(r *Resolver) { r.splitter = s }
}

// WithContextStore sets the saved context store.
func WithContextStore(s contextstore.Service) Option {
	return func(r *Resolver) { r.contexts = s }
}

// WithRegistry sets the request registry shared across resolvers.
func WithRegistry(registry *request.Registry) Option {
	return func(r *Resolver) { r.registry = registry }
}

// WithPublisher sets the progress event publisher.
func WithPublisher(p Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithRequestID overrides the generated request id.
func WithRequestID(id string) Option {
	return func(r *Resolver) { r.requestID = id }
}

// WithParent marks the request as a nested sub-request of parentID.
func WithParent(parentID string) Option {
	return func(r *Resolver) { r.parentID = parentID }
}
