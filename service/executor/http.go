package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juicer-platform/cortex/hooks"
	"github.com/juicer-platform/cortex/internal/clock"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/service/tokenizer"
	"github.com/juicer-platform/cortex/tracing"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

const defaultTemperature = 0.7

var (
	callID    = pipz.NewIdentity("model-call", "POST the request body to the model endpoint")
	backoffID = pipz.NewIdentity("model-call-backoff", "Retry failed model calls with exponential backoff")
	timeoutID = pipz.NewIdentity("model-call-timeout", "Bound a model call by the pathway or model timeout")
)

// Config controls the HTTP executor.
type Config struct {
	// RetryDelay is the base delay between retried calls.
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
	// Timeout applies when neither pathway nor model sets one.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
	// EnableCache caches responses of pathways with enableCache or a zero
	// temperature.
	EnableCache bool `json:"enableCache" yaml:"enableCache"`
	// CacheTTL bounds the age of cached responses.
	CacheTTL time.Duration `json:"cacheTTL" yaml:"cacheTTL"`
}

// DefaultConfig returns the default HTTP executor settings.
func DefaultConfig() Config {
	return Config{RetryDelay: 500 * time.Millisecond, Timeout: 2 * time.Minute, CacheTTL: DefaultCacheTTL}
}

// Option customises the HTTP executor.
type Option func(*HTTP)

// WithListener sets the listener invoked after every call.
func WithListener(l Listener) Option {
	return func(h *HTTP) { h.listener = l }
}

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(h *HTTP) { h.client = client }
}

// WithTokenizer sets the tokenizer used to size completion requests.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(h *HTTP) { h.tokenizer = t }
}

// WithConfig sets executor settings.
func WithConfig(config Config) Option {
	return func(h *HTTP) { h.config = config }
}

// WithCache sets the response cache; it takes precedence over
// Config.EnableCache.
func WithCache(cache *Cache) Option {
	return func(h *HTTP) { h.cache = cache }
}

// HTTP calls OpenAI compatible chat and completion endpoints.
type HTTP struct {
	config    Config
	client    *http.Client
	tokenizer tokenizer.Tokenizer
	listener  Listener
	cache     *Cache
}

// NewHTTP creates an HTTP executor.
func NewHTTP(options ...Option) *HTTP {
	ret := &HTTP{config: DefaultConfig(), client: http.DefaultClient, tokenizer: tokenizer.New()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.cache == nil && ret.config.EnableCache {
		ret.cache = NewCache(ret.config.CacheTTL)
	}
	return ret
}

type exchange struct {
	call   *Call
	url    string
	body   []byte
	result *Result
}

// Execute implements Service.
func (h *HTTP) Execute(ctx context.Context, call *Call) (result *Result, err error) {
	if call == nil || call.Model == nil || call.Prompt == nil {
		return nil, fmt.Errorf("invalid call: model and prompt are required")
	}
	if h.listener != nil {
		defer func() { h.listener(call, result, err) }()
	}
	body, err := h.payload(call)
	if err != nil {
		return nil, err
	}
	url, err := h.url(call)
	if err != nil {
		return nil, err
	}
	var key string
	if h.cacheable(call) {
		key = cacheKey(url, body)
		if text, ok := h.cache.get(ctx, key); ok {
			capitan.Emit(ctx, hooks.ModelCallCached,
				hooks.RequestIDKey.Field(call.RequestID),
				hooks.ModelKey.Field(call.Model.Name),
			)
			return &Result{Text: text}, nil
		}
	}

	started := clock.Now()
	capitan.Emit(ctx, hooks.ModelCallStarted,
		hooks.RequestIDKey.Field(call.RequestID),
		hooks.ModelKey.Field(call.Model.Name),
		hooks.TemperatureKey.Field(h.temperature(call)),
	)
	var lastErr error
	var pipeline pipz.Chainable[*exchange] = pipz.Apply(callID, func(ctx context.Context, x *exchange) (*exchange, error) {
		res, err := h.post(ctx, x)
		if err != nil {
			lastErr = err
			return x, err
		}
		x.result = res
		return x, nil
	})
	if retries := call.Model.Retries; retries > 0 {
		pipeline = pipz.NewBackoff(backoffID, pipeline, retries+1, h.config.RetryDelay)
	}
	if timeout := h.timeout(call); timeout > 0 && !call.Stream {
		pipeline = pipz.NewTimeout(timeoutID, pipeline, timeout)
	}
	x, err := pipeline.Process(ctx, &exchange{call: call, url: url, body: body})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		fields := []capitan.Field{
			hooks.RequestIDKey.Field(call.RequestID),
			hooks.ModelKey.Field(call.Model.Name),
			hooks.ErrorKey.Field(err.Error()),
			hooks.DurationMsKey.Field(int(clock.Since(started).Milliseconds())),
		}
		var backendErr *BackendError
		if errors.As(err, &backendErr) && backendErr.StatusCode > 0 {
			fields = append(fields, hooks.StatusCodeKey.Field(backendErr.StatusCode))
		}
		capitan.Emit(ctx, hooks.ModelCallFailed, fields...)
		return nil, err
	}
	capitan.Emit(ctx, hooks.ModelCallDone,
		hooks.RequestIDKey.Field(call.RequestID),
		hooks.ModelKey.Field(call.Model.Name),
		hooks.DurationMsKey.Field(int(clock.Since(started).Milliseconds())),
	)
	if key != "" && !x.result.Streaming() {
		h.cache.put(ctx, key, x.result.Text)
	}
	return x.result, nil
}

// Preview returns the request body call would send without sending it.
func (h *HTTP) Preview(call *Call) (json.RawMessage, error) {
	if call == nil || call.Model == nil || call.Prompt == nil {
		return nil, fmt.Errorf("invalid call: model and prompt are required")
	}
	return h.payload(call)
}

func (h *HTTP) cacheable(call *Call) bool {
	if h.cache == nil || call.Stream || call.Pathway == nil {
		return false
	}
	return call.Pathway.EnableCache || (call.Pathway.Temperature != nil && *call.Pathway.Temperature == 0)
}

func (h *HTTP) timeout(call *Call) time.Duration {
	if call.Pathway != nil && call.Pathway.Timeout > 0 {
		return call.Pathway.CallTimeout()
	}
	if call.Model.Timeout > 0 {
		return call.Model.Timeout
	}
	return h.config.Timeout
}

func (h *HTTP) temperature(call *Call) float64 {
	if call.Pathway != nil && call.Pathway.Temperature != nil {
		return *call.Pathway.Temperature
	}
	return defaultTemperature
}

// url renders the model URL template with the model name, type and params,
// e.g. https://{{resource}}.openai.azure.com/openai/deployments/{{deployment}}/chat/completions.
func (h *HTTP) url(call *Call) (string, error) {
	parameters := make(map[string]interface{}, len(call.Model.Params)+3)
	for k, v := range call.Model.Params {
		parameters[k] = v
	}
	parameters["name"] = call.Model.Name
	parameters["type"] = call.Model.Type
	parameters["params"] = call.Model.Params
	ret, err := Render(call.Model.URL, parameters)
	if err != nil {
		return "", fmt.Errorf("model %v: invalid url: %w", call.Model.Name, err)
	}
	return ret, nil
}

// payload builds the request body for the model type.
func (h *HTTP) payload(call *Call) ([]byte, error) {
	parameters := call.RenderParameters()
	body := map[string]interface{}{}
	for k, v := range call.Model.Params {
		body[k] = v
	}
	body["temperature"] = h.temperature(call)
	if call.Stream {
		body["stream"] = true
	}

	if call.Model.IsChat() {
		messages, err := h.messages(call, parameters)
		if err != nil {
			return nil, err
		}
		body["messages"] = messages
	} else {
		prompt, err := h.text(call, parameters)
		if err != nil {
			return nil, err
		}
		body["prompt"] = prompt
		body["max_tokens"] = model.MaxTokenLength(call.Pathway, call.Model) - h.tokenizer.Count(prompt) - 1
	}
	return json.Marshal(body)
}

func (h *HTTP) messages(call *Call, parameters map[string]interface{}) ([]*model.Message, error) {
	if call.Prompt.Kind == model.MessagesPrompt {
		return RenderMessages(call.Prompt.Messages, parameters)
	}
	content, err := h.text(call, parameters)
	if err != nil {
		return nil, err
	}
	return []*model.Message{{Role: "user", Content: content}}, nil
}

func (h *HTTP) text(call *Call, parameters map[string]interface{}) (string, error) {
	if call.Prompt.Kind == model.MessagesPrompt {
		messages, err := RenderMessages(call.Prompt.Messages, parameters)
		if err != nil {
			return "", err
		}
		var parts []string
		for _, m := range messages {
			parts = append(parts, m.Content)
		}
		return strings.Join(parts, "\n"), nil
	}
	template, err := call.Prompt.TemplateFor(parameters)
	if err != nil {
		return "", err
	}
	return Render(template, parameters)
}

func (h *HTTP) post(ctx context.Context, x *exchange) (result *Result, err error) {
	call := x.call
	ctx, span := tracing.Start(ctx, "executor.post", tracing.Client)
	defer func() { span.End(err) }()
	span.Request(call.RequestID, pathwayName(call)).Set("cortex.model", call.Model.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.url, bytes.NewReader(x.body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range call.Model.Headers {
		req.Header.Set(k, v)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	span.HTTPStatus(resp.StatusCode)
	if call.Stream && resp.StatusCode == http.StatusOK {
		return &Result{Stream: resp.Body}, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	text, err := parseResponse(call.Model.Name, data)
	if resp.StatusCode >= http.StatusBadRequest {
		message := strings.TrimSpace(string(data))
		var backendErr *BackendError
		if errors.As(err, &backendErr) && !strings.HasPrefix(backendErr.Message, "invalid response") {
			message = backendErr.Message
		}
		return nil, NewBackendError(call.Model.Name, resp.StatusCode, message)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Text: text}, nil
}

func pathwayName(call *Call) string {
	if call.Pathway == nil {
		return ""
	}
	return call.Pathway.Name
}

// parseResponse extracts choices[0].message.content or choices[0].text; an
// error payload is reported as BackendError.
func parseResponse(modelName string, data []byte) (string, error) {
	var response struct {
		Error   json.RawMessage `json:"error"`
		Choices []struct {
			Text    string `json:"text"`
			Message *struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return "", NewBackendError(modelName, 0, fmt.Sprintf("invalid response: %v", err))
	}
	if len(response.Error) > 0 && string(response.Error) != "null" {
		var detail struct {
			Message string `json:"message"`
		}
		message := string(response.Error)
		if json.Unmarshal(response.Error, &detail) == nil && detail.Message != "" {
			message = detail.Message
		}
		return "", NewBackendError(modelName, 0, message)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	choice := response.Choices[0]
	if choice.Message != nil {
		return strings.TrimSpace(choice.Message.Content), nil
	}
	return strings.TrimSpace(choice.Text), nil
}
