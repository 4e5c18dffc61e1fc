package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Message is a single chat message template. A message with an empty Role is a
// placeholder: its Content (e.g. "{{chatHistory}}") names a parameter holding
// a list of messages that is spliced in at render time.
type Message struct {
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
}

// IsPlaceholder reports whether the message expands from a parameter.
func (m *Message) IsPlaceholder() bool {
	return m.Role == ""
}

// UnmarshalYAML accepts either a {role, content} mapping or a bare scalar
// placeholder.
func (m *Message) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		m.Content = node.Value
		return nil
	case yaml.MappingNode:
		type plain Message
		var v plain
		if err := node.Decode(&v); err != nil {
			return err
		}
		*m = Message(v)
		return nil
	}
	return fmt.Errorf("invalid message at line %d", node.Line)
}
