package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func ratio(v float64) *float64 { return &v }

func TestMaxTokenLength(t *testing.T) {
	assert.Equal(t, DefaultMaxTokenLength, MaxTokenLength(&Pathway{}, nil))
	assert.Equal(t, 8192, MaxTokenLength(&Pathway{}, &Model{MaxTokenLength: 8192}))
	assert.Equal(t, 1000, MaxTokenLength(&Pathway{MaxTokenLength: 1000}, &Model{MaxTokenLength: 8192}))
}

func TestTokenRatio(t *testing.T) {
	var testCases = []struct {
		description string
		pathway     *Pathway
		model       *Model
		expect      float64
	}{
		{description: "default", pathway: &Pathway{}, expect: DefaultTokenRatio},
		{description: "model", pathway: &Pathway{}, model: &Model{TokenRatio: ratio(0.7)}, expect: 0.7},
		{description: "pathway", pathway: &Pathway{TokenRatio: ratio(0.6)}, model: &Model{TokenRatio: ratio(0.7)}, expect: 0.6},
		{description: "input parameter", pathway: &Pathway{TokenRatio: ratio(0.6), InputParameters: map[string]interface{}{"tokenRatio": 0.25}}, expect: 0.25},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, TokenRatio(testCase.pathway, testCase.model), testCase.description)
	}
}

func TestCatalog(t *testing.T) {
	src := `defaultModelName: gpt
models:
  gpt:
    type: OPENAI-CHAT
    url: http://localhost/v1/chat/completions
    maxTokenLength: 8192
    timeout: 30s
  davinci:
    type: OPENAI-COMPLETION
pathways:
  bullets:
    useInputChunking: false
    prompt:
      - "Summarize {{text}}"
      - "Bullets {{previousResult}}"
  legacy:
    model: davinci
    prompt: "{{text}}"
  broken:
    model: missing
    prompt: "{{text}}"
`
	catalog := &Catalog{}
	assert.NoError(t, yaml.Unmarshal([]byte(src), catalog))
	catalog.Init()

	bullets, err := catalog.Pathway("bullets")
	assert.NoError(t, err)
	assert.Equal(t, "bullets", bullets.Name)
	assert.False(t, bullets.InputChunking())
	assert.Len(t, bullets.Prompt, 2)

	m, err := catalog.ResolveModel(bullets)
	assert.NoError(t, err)
	assert.Equal(t, "gpt", m.Name)
	assert.True(t, m.IsChat())
	assert.EqualValues(t, 30_000_000_000, m.Timeout)

	legacy, _ := catalog.Pathway("legacy")
	m, err = catalog.ResolveModel(legacy)
	assert.NoError(t, err)
	assert.False(t, m.IsChat())

	broken, _ := catalog.Pathway("broken")
	_, err = catalog.ResolveModel(broken)
	assert.EqualError(t, err, "model missing not found in config")
	assert.Error(t, catalog.Validate())

	_, err = catalog.Pathway("nope")
	assert.Error(t, err)
}
