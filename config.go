package cortex

import (
	"context"
	"fmt"

	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/dispatcher"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/messaging/memory"
	"github.com/juicer-platform/cortex/service/meta"
	"github.com/juicer-platform/cortex/tracing"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// Saved context store kinds.
const (
	ContextStoreMemory = "memory"
	ContextStoreFS     = "fs"
)

// Config is a serialisable representation of the service configuration. The
// catalog of models and pathways is inlined at the top level.
type Config struct {
	model.Catalog `yaml:",inline"`

	Executor     executor.Config    `json:"executor" yaml:"executor"`
	Dispatcher   dispatcher.Config  `json:"dispatcher" yaml:"dispatcher"`
	Registry     request.Config     `json:"registry" yaml:"registry"`
	Events       memory.Config      `json:"events" yaml:"events"`
	ContextStore ContextStoreConfig `json:"contextStore" yaml:"contextStore"`
	Tracing      *tracing.Config    `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// ContextStoreConfig selects the saved context storage.
type ContextStoreConfig struct {
	// Kind is memory or fs.
	Kind string `json:"kind" yaml:"kind"`
	// BaseURL is the afs location of fs stores, e.g. file:///var/cortex/context or mem://localhost/context.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
}

// DefaultConfig returns a Config with package defaults and an empty catalog.
func DefaultConfig() *Config {
	return &Config{
		Executor:     executor.DefaultConfig(),
		Dispatcher:   dispatcher.DefaultConfig(),
		Registry:     request.DefaultConfig(),
		Events:       memory.DefaultConfig(),
		ContextStore: ContextStoreConfig{Kind: ContextStoreMemory},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Dispatcher.Validate(); err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	switch c.ContextStore.Kind {
	case "", ContextStoreMemory:
	case ContextStoreFS:
		if c.ContextStore.BaseURL == "" {
			return fmt.Errorf("contextStore.baseURL is required for fs store")
		}
	default:
		return fmt.Errorf("unsupported contextStore.kind: %v", c.ContextStore.Kind)
	}
	if c.Tracing != nil {
		if err := c.Tracing.Validate(); err != nil {
			return err
		}
	}
	return c.Catalog.Validate()
}

// LoadConfig reads a YAML or JSON configuration from URL over defaults.
// ${env.KEY} expressions are expanded, so secrets such as API keys can stay
// in the environment.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New(afs.New(), "", options...).Load(ctx, URL, ret); err != nil {
		return nil, err
	}
	ret.Catalog.Init()
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
