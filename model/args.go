package model

// Args carries the call-scope input of a single request.
type Args struct {
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
	Async     bool   `json:"async,omitempty" yaml:"async,omitempty"`
	Stream    bool   `json:"stream,omitempty" yaml:"stream,omitempty"`
	ContextID string `json:"contextId,omitempty" yaml:"contextId,omitempty"`
	// Parameters are merged over pathway input parameters.
	Parameters map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Clone returns a shallow copy with its own parameter map.
func (a *Args) Clone() *Args {
	if a == nil {
		return &Args{}
	}
	ret := *a
	ret.Parameters = make(map[string]interface{}, len(a.Parameters))
	for k, v := range a.Parameters {
		ret.Parameters[k] = v
	}
	return &ret
}
