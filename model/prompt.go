package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PromptKind identifies the prompt variant.
type PromptKind int

const (
	// PlainPrompt is a single text template.
	PlainPrompt PromptKind = iota
	// MessagesPrompt is an ordered list of chat message templates.
	MessagesPrompt
	// ComputedPrompt derives its template from call parameters.
	ComputedPrompt
)

const (
	// TextParameter names the chunk of input text a prompt operates on.
	TextParameter = "text"
	// PreviousResultParameter names the output of the preceding pipeline stage.
	PreviousResultParameter = "previousResult"
)

// ComputeFunc builds a template from parameters.
type ComputeFunc func(parameters map[string]interface{}) (string, error)

// Prompt is one stage of a pathway pipeline.
type Prompt struct {
	Kind     PromptKind
	Template string
	Messages []*Message
	Compute  ComputeFunc
	// SaveResultTo names the saved-context key receiving the stage result.
	SaveResultTo string

	usesText     bool
	usesPrevious bool
}

// NewPlain creates a template prompt.
func NewPlain(template string) *Prompt {
	ret := &Prompt{Kind: PlainPrompt, Template: template}
	ret.analyze()
	return ret
}

// NewMessages creates a chat messages prompt.
func NewMessages(messages ...*Message) *Prompt {
	ret := &Prompt{Kind: MessagesPrompt, Messages: messages}
	ret.analyze()
	return ret
}

// NewComputed creates a prompt whose template is produced by fn. The
// template is resolved once against defaults to derive input usage and
// token footprint.
func NewComputed(fn ComputeFunc, defaults map[string]interface{}) (*Prompt, error) {
	ret := &Prompt{Kind: ComputedPrompt, Compute: fn}
	template, err := fn(defaults)
	if err != nil {
		return nil, fmt.Errorf("failed to compute prompt: %w", err)
	}
	ret.Template = template
	ret.analyze()
	return ret, nil
}

// WithSaveResultTo sets the saved-context key and returns the prompt.
func (p *Prompt) WithSaveResultTo(key string) *Prompt {
	p.SaveResultTo = key
	return p
}

// UsesTextInput reports whether the prompt references the text chunk.
func (p *Prompt) UsesTextInput() bool { return p.usesText }

// UsesPreviousResult reports whether the prompt references the previous stage output.
func (p *Prompt) UsesPreviousResult() bool { return p.usesPrevious }

// TemplateFor returns the template text for the supplied parameters.
func (p *Prompt) TemplateFor(parameters map[string]interface{}) (string, error) {
	if p.Kind == ComputedPrompt && p.Compute != nil {
		return p.Compute(parameters)
	}
	return p.Template, nil
}

func (p *Prompt) analyze() {
	var names []string
	switch p.Kind {
	case MessagesPrompt:
		for _, m := range p.Messages {
			if m == nil {
				continue
			}
			names = append(names, Placeholders(m.Content)...)
		}
	default:
		names = Placeholders(p.Template)
	}
	p.usesText, p.usesPrevious = false, false
	for _, name := range names {
		switch name {
		case TextParameter:
			p.usesText = true
		case PreviousResultParameter:
			p.usesPrevious = true
		}
	}
}

// UnmarshalYAML accepts a scalar template or a mapping with prompt|messages
// and saveResultTo.
func (p *Prompt) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = *NewPlain(node.Value)
		return nil
	case yaml.MappingNode:
		var v struct {
			Prompt       string     `yaml:"prompt"`
			Messages     []*Message `yaml:"messages"`
			SaveResultTo string     `yaml:"saveResultTo"`
		}
		if err := node.Decode(&v); err != nil {
			return err
		}
		if len(v.Messages) > 0 {
			*p = *NewMessages(v.Messages...)
		} else {
			*p = *NewPlain(v.Prompt)
		}
		p.SaveResultTo = v.SaveResultTo
		return nil
	}
	return fmt.Errorf("invalid prompt at line %d", node.Line)
}

// Prompts is an ordered prompt pipeline.
type Prompts []*Prompt

// UnmarshalYAML accepts a single prompt or a sequence of prompts.
func (p *Prompts) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		prompt := &Prompt{}
		if err := prompt.UnmarshalYAML(node); err != nil {
			return err
		}
		*p = Prompts{prompt}
		return nil
	}
	ret := make(Prompts, 0, len(node.Content))
	for _, item := range node.Content {
		prompt := &Prompt{}
		if err := prompt.UnmarshalYAML(item); err != nil {
			return err
		}
		ret = append(ret, prompt)
	}
	*p = ret
	return nil
}

// MixesInputs reports whether any prompt uses both the text chunk and the
// previous result.
func (p Prompts) MixesInputs() bool {
	for _, prompt := range p {
		if prompt.UsesTextInput() && prompt.UsesPreviousResult() {
			return true
		}
	}
	return false
}
