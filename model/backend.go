package model

import "time"

// Backend model types.
const (
	TypeOpenAIChat       = "OPENAI-CHAT"
	TypeOpenAICompletion = "OPENAI-COMPLETION"
)

const (
	// DefaultMaxTokenLength applies when neither pathway nor model sets one.
	DefaultMaxTokenLength = 4096
	// DefaultTokenRatio is the share of the context window given to input.
	DefaultTokenRatio = 0.5
)

// Model describes a text-generation backend.
type Model struct {
	Name           string                 `json:"name,omitempty" yaml:"name,omitempty"`
	Type           string                 `json:"type,omitempty" yaml:"type,omitempty"`
	URL            string                 `json:"url,omitempty" yaml:"url,omitempty"`
	Headers        map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	Params         map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
	MaxTokenLength int                    `json:"maxTokenLength,omitempty" yaml:"maxTokenLength,omitempty"`
	TokenRatio     *float64               `json:"tokenRatio,omitempty" yaml:"tokenRatio,omitempty"`
	Timeout        time.Duration          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retries        int                    `json:"retries,omitempty" yaml:"retries,omitempty"`
}

// IsChat reports whether the backend takes a messages payload.
func (m *Model) IsChat() bool {
	return m.Type == "" || m.Type == TypeOpenAIChat
}
