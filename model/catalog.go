package model

import (
	"fmt"
	"math"
)

// SummaryPathway is the catalog pathway used for input pre-summarization.
const SummaryPathway = "summary"

// Catalog holds the configured models and pathways.
type Catalog struct {
	DefaultModelName string              `json:"defaultModelName,omitempty" yaml:"defaultModelName,omitempty"`
	Models           map[string]*Model   `json:"models,omitempty" yaml:"models,omitempty"`
	Pathways         map[string]*Pathway `json:"pathways,omitempty" yaml:"pathways,omitempty"`
}

// Init assigns map keys as names where missing.
func (c *Catalog) Init() {
	for name, m := range c.Models {
		if m != nil && m.Name == "" {
			m.Name = name
		}
	}
	for name, p := range c.Pathways {
		if p != nil && p.Name == "" {
			p.Name = name
		}
	}
}

// Clone returns a copy with its own model and pathway maps.
func (c *Catalog) Clone() *Catalog {
	ret := &Catalog{
		DefaultModelName: c.DefaultModelName,
		Models:           make(map[string]*Model, len(c.Models)),
		Pathways:         make(map[string]*Pathway, len(c.Pathways)),
	}
	for k, v := range c.Models {
		ret.Models[k] = v
	}
	for k, v := range c.Pathways {
		ret.Pathways[k] = v
	}
	return ret
}

// Validate checks every pathway and model reference.
func (c *Catalog) Validate() error {
	for name, p := range c.Pathways {
		if p == nil {
			return fmt.Errorf("pathway %v is empty", name)
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if _, err := c.ResolveModel(p); err != nil {
			return err
		}
	}
	return nil
}

// Pathway returns a pathway by name.
func (c *Catalog) Pathway(name string) (*Pathway, error) {
	ret, ok := c.Pathways[name]
	if !ok || ret == nil {
		return nil, fmt.Errorf("pathway %v not found", name)
	}
	return ret, nil
}

// ResolveModel returns the pathway model or the catalog default.
func (c *Catalog) ResolveModel(p *Pathway) (*Model, error) {
	name := c.DefaultModelName
	if p != nil && p.Model != "" {
		name = p.Model
	}
	ret, ok := c.Models[name]
	if !ok || ret == nil {
		return nil, fmt.Errorf("model %v not found in config", name)
	}
	return ret, nil
}

// MaxTokenLength resolves the context size: pathway override, then model,
// then DefaultMaxTokenLength.
func MaxTokenLength(p *Pathway, m *Model) int {
	if p != nil && p.MaxTokenLength > 0 {
		return p.MaxTokenLength
	}
	if m != nil && m.MaxTokenLength > 0 {
		return m.MaxTokenLength
	}
	return DefaultMaxTokenLength
}

// TokenRatio resolves the input share: pathway inputParameters.tokenRatio,
// pathway tokenRatio, model tokenRatio, then DefaultTokenRatio.
func TokenRatio(p *Pathway, m *Model) float64 {
	if p != nil {
		if v, ok := asFloat(p.InputParameters["tokenRatio"]); ok && v > 0 {
			return v
		}
		if p.TokenRatio != nil && *p.TokenRatio > 0 {
			return *p.TokenRatio
		}
	}
	if m != nil && m.TokenRatio != nil && *m.TokenRatio > 0 {
		return *m.TokenRatio
	}
	return DefaultTokenRatio
}

func asFloat(v interface{}) (float64, bool) {
	switch actual := v.(type) {
	case float64:
		return actual, !math.IsNaN(actual)
	case float32:
		return float64(actual), true
	case int:
		return float64(actual), true
	case int64:
		return float64(actual), true
	}
	return 0, false
}
