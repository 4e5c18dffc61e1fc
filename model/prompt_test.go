package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestPlaceholders(t *testing.T) {
	var testCases = []struct {
		description string
		template    string
		expect      []string
	}{
		{description: "plain text", template: "no tags here", expect: nil},
		{description: "expression", template: "Summarize: {{text}}", expect: []string{"text"}},
		{description: "raw expression", template: "{{{ previousResult }}} and {{text}}", expect: []string{"previousResult", "text"}},
		{description: "dotted path", template: "{{user.name}} {{user.email}}", expect: []string{"user"}},
		{description: "filter ignored", template: "{{text|upper}}", expect: []string{"text"}},
		{description: "tag", template: "{% if previousResult %}{{previousResult}}{% endif %}", expect: []string{"previousResult"}},
		{description: "string literal", template: `{{ "text" }}`, expect: nil},
		{description: "unterminated", template: "{{text", expect: []string{"text"}},
	}
	for _, testCase := range testCases {
		actual := Placeholders(testCase.template)
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestPrompt_Usage(t *testing.T) {
	var testCases = []struct {
		description  string
		prompt       *Prompt
		usesText     bool
		usesPrevious bool
	}{
		{description: "text only", prompt: NewPlain("Summarize {{text}}"), usesText: true},
		{description: "previous only", prompt: NewPlain("Bullets: {{previousResult}}"), usesPrevious: true},
		{description: "mixed", prompt: NewPlain("{{text}} / {{previousResult}}"), usesText: true, usesPrevious: true},
		{description: "textual mention", prompt: NewPlain("the text is ready"), usesText: false},
		{description: "messages", prompt: NewMessages(&Message{Role: "system", Content: "be brief"}, &Message{Role: "user", Content: "{{text}}"}), usesText: true},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.usesText, testCase.prompt.UsesTextInput(), testCase.description)
		assert.Equal(t, testCase.usesPrevious, testCase.prompt.UsesPreviousResult(), testCase.description)
	}
}

func TestNewComputed(t *testing.T) {
	prompt, err := NewComputed(func(parameters map[string]interface{}) (string, error) {
		if parameters["style"] == "long" {
			return "Explain in depth: {{text}}", nil
		}
		return "Explain: {{text}}", nil
	}, map[string]interface{}{"style": "short"})
	assert.NoError(t, err)
	assert.Equal(t, "Explain: {{text}}", prompt.Template)
	assert.True(t, prompt.UsesTextInput())
	actual, err := prompt.TemplateFor(map[string]interface{}{"style": "long"})
	assert.NoError(t, err)
	assert.Equal(t, "Explain in depth: {{text}}", actual)
}

func TestPrompts_UnmarshalYAML(t *testing.T) {
	var testCases = []struct {
		description string
		yaml        string
		expectLen   int
		check       func(t *testing.T, prompts Prompts)
	}{
		{
			description: "scalar",
			yaml:        `prompt: "Summarize {{text}}"`,
			expectLen:   1,
			check: func(t *testing.T, prompts Prompts) {
				assert.Equal(t, PlainPrompt, prompts[0].Kind)
				assert.True(t, prompts[0].UsesTextInput())
			},
		},
		{
			description: "sequence",
			yaml: `prompt:
  - "Summarize {{text}}"
  - prompt: "Bullets {{previousResult}}"
    saveResultTo: bullets
`,
			expectLen: 2,
			check: func(t *testing.T, prompts Prompts) {
				assert.Equal(t, "bullets", prompts[1].SaveResultTo)
				assert.True(t, prompts[1].UsesPreviousResult())
			},
		},
		{
			description: "messages",
			yaml: `prompt:
  - messages:
      - role: system
        content: Assistant
      - "{{chatHistory}}"
      - role: user
        content: "{{text}}"
`,
			expectLen: 1,
			check: func(t *testing.T, prompts Prompts) {
				assert.Equal(t, MessagesPrompt, prompts[0].Kind)
				assert.Len(t, prompts[0].Messages, 3)
				assert.True(t, prompts[0].Messages[1].IsPlaceholder())
				assert.True(t, prompts[0].UsesTextInput())
			},
		},
	}
	for _, testCase := range testCases {
		var holder struct {
			Prompt Prompts `yaml:"prompt"`
		}
		err := yaml.Unmarshal([]byte(testCase.yaml), &holder)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Len(t, holder.Prompt, testCase.expectLen, testCase.description)
		testCase.check(t, holder.Prompt)
	}
}
