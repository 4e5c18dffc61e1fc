package resolver

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/juicer-platform/cortex/internal/idgen"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/chunker"
	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/event"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/tokenizer"
)

// Publisher publishes progress events of a request.
type Publisher interface {
	Publish(ctx context.Context, event *event.Event[progress.Event]) error
}

// offerer is implemented by publishers that can drop an event instead of
// waiting for transport capacity.
type offerer interface {
	Offer(ctx context.Context, event *event.Event[progress.Event]) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *event.Event[progress.Event]) error { return nil }

// Resolver runs one request of a pathway. A Resolver is bound to a single
// request id and must not be reused across requests.
type Resolver struct {
	pathway   *model.Pathway
	model     *model.Model
	catalog   *model.Catalog
	executor  executor.Service
	tokenizer tokenizer.Tokenizer
	splitter  chunker.Splitter
	contexts  contextstore.Service
	registry  *request.Registry
	publisher Publisher
	requestID string
	parentID  string
	dropped   sync.Once

	mu                  sync.Mutex
	prompts             model.Prompts
	chunkMaxTokenLength float64
	warnings            []string
	previousResult      string
	savedContextID      string
	mode                Mode
}

// New creates a resolver for pathway with a fresh request id.
func New(pathway *model.Pathway, options ...Option) (*Resolver, error) {
	if pathway == nil {
		return nil, fmt.Errorf("pathway is required")
	}
	ret := &Resolver{pathway: pathway}
	for _, opt := range options {
		opt(ret)
	}
	if ret.executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if ret.model == nil {
		if ret.catalog == nil {
			return nil, newConfigurationError(pathway.Name, "model or catalog is required")
		}
		m, err := ret.catalog.ResolveModel(pathway)
		if err != nil {
			return nil, &ConfigurationError{Pathway: pathway.Name, Reason: err.Error()}
		}
		ret.model = m
	}
	if ret.tokenizer == nil {
		ret.tokenizer = tokenizer.New()
	}
	if ret.splitter == nil {
		ret.splitter = chunker.New(ret.tokenizer)
	}
	if ret.contexts == nil {
		ret.contexts = contextstore.NewMemory()
	}
	if ret.registry == nil {
		ret.registry = request.NewRegistry(request.DefaultConfig())
	}
	if ret.publisher == nil {
		ret.publisher = nopPublisher{}
	}
	if ret.requestID == "" {
		ret.requestID = idgen.New()
	}
	if err := ret.SetPrompts(pathway.Prompt); err != nil {
		return nil, err
	}
	ret.registry.Link(ret.requestID, ret.parentID, pathway.Name)
	return ret, nil
}

// RequestID returns the request id.
func (r *Resolver) RequestID() string { return r.requestID }

// Pathway returns the pathway being resolved.
func (r *Resolver) Pathway() *model.Pathway { return r.pathway }

// Registry returns the request registry.
func (r *Resolver) Registry() *request.Registry { return r.registry }

// ChunkMaxTokenLength returns the per chunk token budget, ratio*maxTokens
// less the longest prompt footprint, halved for prompts mixing inputs. It
// may be fractional.
func (r *Resolver) ChunkMaxTokenLength() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunkMaxTokenLength
}

// tokenBudget is the whole number of tokens the budget admits.
func (r *Resolver) tokenBudget() int {
	return int(math.Floor(r.ChunkMaxTokenLength()))
}

// Prompts returns the prompt pipeline.
func (r *Resolver) Prompts() model.Prompts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prompts
}

// Warnings returns the truncation notices recorded so far.
func (r *Resolver) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// PreviousResult returns the output of the last serial pipeline stage.
func (r *Resolver) PreviousResult() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.previousResult
}

// SavedContextID returns the saved context id used or minted by the request.
func (r *Resolver) SavedContextID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.savedContextID
}

// Mode returns the resolved delivery mode.
func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Resolver) warn(text string) {
	r.mu.Lock()
	r.warnings = append(r.warnings, text)
	r.mu.Unlock()
}
