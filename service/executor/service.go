package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/juicer-platform/cortex/model"
)

// Service invokes a model once.
type Service interface {
	Execute(ctx context.Context, call *Call) (*Result, error)
}

// Previewer is implemented by executors that can render the request body of
// a call without sending it.
type Previewer interface {
	Preview(call *Call) (json.RawMessage, error)
}

// Func adapts a function to Service.
type Func func(ctx context.Context, call *Call) (*Result, error)

// Execute implements Service.
func (f Func) Execute(ctx context.Context, call *Call) (*Result, error) {
	return f(ctx, call)
}

// Call is a single model invocation.
type Call struct {
	RequestID string
	Pathway   *model.Pathway
	Model     *model.Model
	Prompt    *model.Prompt
	// Text is the input chunk; nil when the prompt does not consume text.
	Text *string
	// Parameters are the merged call parameters including previousResult.
	Parameters map[string]interface{}
	// Stream requests a live response stream.
	Stream bool
}

// RenderParameters returns the parameters used for template rendering.
func (c *Call) RenderParameters() map[string]interface{} {
	ret := make(map[string]interface{}, len(c.Parameters)+1)
	for k, v := range c.Parameters {
		ret[k] = v
	}
	if c.Text != nil {
		ret[model.TextParameter] = *c.Text
	}
	return ret
}

// Result is either a complete text or a live stream handle.
type Result struct {
	Text   string
	Stream io.ReadCloser
}

// Streaming reports whether the result is a stream handle.
func (r *Result) Streaming() bool {
	return r != nil && r.Stream != nil
}

// Listener is invoked after every call, successful or not.
type Listener func(call *Call, result *Result, err error)

// StdoutListener prints the call prompt and outcome as JSON lines.
func StdoutListener(call *Call, result *Result, err error) {
	if call == nil {
		return
	}
	entry := map[string]interface{}{"requestId": call.RequestID, "stream": call.Stream}
	if call.Pathway != nil {
		entry["pathway"] = call.Pathway.Name
	}
	if result != nil && !result.Streaming() {
		entry["result"] = result.Text
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	data, _ := json.Marshal(entry)
	fmt.Println(string(data))
}
