package executor

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/model"
)

var (
	templates sync.Map
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
	// stripHTML is also accepted in helper form: {{stripHTML text}}.
	stripHTMLCall = regexp.MustCompile(`\{\{\s*stripHTML\s+([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)
)

// Prompts may use the stripHTML filter and the now global, which renders
// the current UTC time in ISO 8601.
func init() {
	_ = pongo2.RegisterFilter("stripHTML", filterStripHTML)
	pongo2.Globals["now"] = now
}

func filterStripHTML(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(htmlTag.ReplaceAllString(in.String(), "")), nil
}

func now() string {
	return clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Render expands a prompt template with parameters. Triple braces are
// accepted as an alias of double braces; output is never HTML escaped.
func Render(template string, parameters map[string]interface{}) (string, error) {
	if !strings.Contains(template, "{{") && !strings.Contains(template, "{%") {
		return template, nil
	}
	tpl, err := compile(template)
	if err != nil {
		return "", err
	}
	ret, err := tpl.Execute(pongo2.Context(parameters))
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return ret, nil
}

func compile(template string) (*pongo2.Template, error) {
	if cached, ok := templates.Load(template); ok {
		return cached.(*pongo2.Template), nil
	}
	source := strings.NewReplacer("{{{", "{{", "}}}", "}}").Replace(template)
	source = stripHTMLCall.ReplaceAllString(source, "{{ $1|stripHTML }}")
	tpl, err := pongo2.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template: %w", err)
	}
	templates.Store(template, tpl)
	return tpl, nil
}

// RenderMessages expands message templates; placeholder messages splice the
// message list held by the named parameter.
func RenderMessages(messages []*model.Message, parameters map[string]interface{}) ([]*model.Message, error) {
	var ret []*model.Message
	for _, message := range messages {
		if message == nil {
			continue
		}
		if message.IsPlaceholder() {
			names := model.Placeholders(message.Content)
			if len(names) == 0 {
				continue
			}
			ret = append(ret, asMessages(parameters[names[0]])...)
			continue
		}
		content, err := Render(message.Content, parameters)
		if err != nil {
			return nil, err
		}
		ret = append(ret, &model.Message{Role: message.Role, Content: content})
	}
	return ret, nil
}

func asMessages(value interface{}) []*model.Message {
	switch actual := value.(type) {
	case []*model.Message:
		return actual
	case []model.Message:
		ret := make([]*model.Message, 0, len(actual))
		for i := range actual {
			ret = append(ret, &actual[i])
		}
		return ret
	case []interface{}:
		var ret []*model.Message
		for _, item := range actual {
			if m, ok := item.(map[string]interface{}); ok {
				role, _ := m["role"].(string)
				content, _ := m["content"].(string)
				if role != "" {
					ret = append(ret, &model.Message{Role: role, Content: content})
				}
			}
		}
		return ret
	case []map[string]interface{}:
		items := make([]interface{}, len(actual))
		for i := range actual {
			items[i] = actual[i]
		}
		return asMessages(items)
	}
	return nil
}
