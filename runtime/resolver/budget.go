package resolver

import (
	"github.com/juicer-platform/cortex/model"
)

// SetPrompts replaces the prompt pipeline and recomputes the chunk budget.
// The resolver is left unchanged when the prompts are invalid.
func (r *Resolver) SetPrompts(prompts model.Prompts) error {
	if len(prompts) == 0 {
		return newConfigurationError(r.pathway.Name, "prompt is required")
	}
	for i, prompt := range prompts {
		if prompt == nil {
			return newConfigurationError(r.pathway.Name, "prompt[%d] is nil", i)
		}
	}
	budget, err := r.chunkBudget(prompts)
	if err != nil {
		return err
	}
	normalized := append(model.Prompts(nil), prompts...)
	r.mu.Lock()
	r.prompts = normalized
	r.chunkMaxTokenLength = budget
	r.mu.Unlock()
	return nil
}

// chunkBudget returns ratio*maxTokenLength - longest prompt footprint,
// halved when a prompt consumes both the text chunk and the previous result.
func (r *Resolver) chunkBudget(prompts model.Prompts) (float64, error) {
	footprint := 0
	for _, prompt := range prompts {
		if size := r.footprint(prompt); size > footprint {
			footprint = size
		}
	}
	maxTokenLength := model.MaxTokenLength(r.pathway, r.model)
	ratio := model.TokenRatio(r.pathway, r.model)
	budget := ratio*float64(maxTokenLength) - float64(footprint)
	if prompts.MixesInputs() {
		budget = budget / 2
	}
	if budget <= 0 {
		return 0, newConfigurationError(r.pathway.Name,
			"prompt too long: split it into multiple prompts or reduce its length, prompt length: %d", footprint)
	}
	return budget, nil
}

func (r *Resolver) footprint(prompt *model.Prompt) int {
	if prompt.Kind != model.MessagesPrompt {
		return r.tokenizer.Count(prompt.Template)
	}
	ret := 0
	for _, message := range prompt.Messages {
		if message == nil || message.Role == "" || message.Content == "" {
			continue
		}
		ret += r.tokenizer.Count(message.Role) + r.tokenizer.Count(message.Content)
	}
	return ret
}
