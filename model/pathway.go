package model

import (
	"fmt"
	"time"
)

// Pathway is a declarative prompt pipeline with its chunking policy.
type Pathway struct {
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	Prompt Prompts `json:"-" yaml:"prompt"`
	// Model names the backend; the catalog default is used when empty.
	Model       string   `json:"model,omitempty" yaml:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	// EnableCache caches backend responses when the executor cache is on;
	// a zero temperature implies it.
	EnableCache bool `json:"enableCache,omitempty" yaml:"enableCache,omitempty"`

	UseInputChunking           *bool `json:"useInputChunking,omitempty" yaml:"useInputChunking,omitempty"`
	UseParallelChunkProcessing bool  `json:"useParallelChunkProcessing,omitempty" yaml:"useParallelChunkProcessing,omitempty"`
	UseInputSummarization      bool  `json:"useInputSummarization,omitempty" yaml:"useInputSummarization,omitempty"`
	InputChunkSize             int   `json:"inputChunkSize,omitempty" yaml:"inputChunkSize,omitempty"`
	TruncateFromFront          bool  `json:"truncateFromFront,omitempty" yaml:"truncateFromFront,omitempty"`

	// MaxTokenLength overrides the model context size when positive.
	MaxTokenLength int      `json:"maxTokenLength,omitempty" yaml:"maxTokenLength,omitempty"`
	TokenRatio     *float64 `json:"tokenRatio,omitempty" yaml:"tokenRatio,omitempty"`

	// InputParameters are pipeline-wide parameter defaults.
	InputParameters map[string]interface{} `json:"inputParameters,omitempty" yaml:"inputParameters,omitempty"`

	// Timeout in seconds applied to every backend call; zero means none.
	Timeout int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// InputChunking reports whether the input text may be split; defaults to true.
func (p *Pathway) InputChunking() bool {
	return p.UseInputChunking == nil || *p.UseInputChunking
}

// CallTimeout returns the per call timeout.
func (p *Pathway) CallTimeout() time.Duration {
	return time.Duration(p.Timeout) * time.Second
}

// Validate checks structural soundness.
func (p *Pathway) Validate() error {
	if len(p.Prompt) == 0 {
		return fmt.Errorf("pathway %v: prompt is required", p.Name)
	}
	for i, prompt := range p.Prompt {
		if prompt == nil {
			return fmt.Errorf("pathway %v: prompt[%d] is nil", p.Name, i)
		}
	}
	if p.InputChunkSize < 0 {
		return fmt.Errorf("pathway %v: inputChunkSize must be >= 0", p.Name)
	}
	return nil
}

// Parameters returns a copy of the pathway input parameters.
func (p *Pathway) Parameters() map[string]interface{} {
	ret := make(map[string]interface{}, len(p.InputParameters))
	for k, v := range p.InputParameters {
		ret[k] = v
	}
	return ret
}
