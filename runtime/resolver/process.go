package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/juicer-platform/cortex/hooks"
	"github.com/juicer-platform/cortex/internal/idgen"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/tracing"
	"github.com/zoobzio/capitan"
)

const chunkSeparator = "\n\n"

// output is the aggregated result of a request: a text or, for a streamed
// final stage, the live stream handles in chunk order.
type output struct {
	text    string
	streams []io.ReadCloser
}

func (o *output) streaming() bool { return o != nil && len(o.streams) > 0 }

// savedContext is the saved context of one pipeline run.
type savedContext map[string]interface{}

func (s savedContext) clone() savedContext {
	ret := make(savedContext, len(s))
	for k, v := range s {
		ret[k] = v
	}
	return ret
}

// promptAndParse loads the saved context, runs the request and persists the
// context when the run changed it, minting a context id if needed.
func (r *Resolver) promptAndParse(ctx context.Context, args *model.Args, mode Mode) (*output, error) {
	contextID := args.ContextID
	values, err := r.contexts.Get(ctx, contextID)
	if err != nil {
		return nil, err
	}
	before, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to encode saved context: %w", err)
	}
	saved := savedContext(values)
	out, err := r.processRequest(ctx, args, mode, saved)
	if err != nil {
		return nil, err
	}
	after, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("failed to encode saved context: %w", err)
	}
	if !bytes.Equal(before, after) {
		if contextID == "" {
			contextID = idgen.New()
		}
		if err = r.contexts.Set(ctx, contextID, saved); err != nil {
			return nil, err
		}
	}
	r.mu.Lock()
	r.savedContextID = contextID
	r.mu.Unlock()
	return out, nil
}

// processRequest chunks the input and runs the prompt pipeline.
func (r *Resolver) processRequest(ctx context.Context, args *model.Args, mode Mode, saved savedContext) (out *output, err error) {
	ctx, span := tracing.Start(ctx, "resolver.processRequest", tracing.Internal)
	defer func() { span.End(err) }()
	span.Request(r.requestID, r.pathway.Name)

	text, err := r.summarizeIfEnabled(ctx, args)
	if err != nil {
		return nil, err
	}
	chunks := r.processInputText(ctx, text)
	prompts := r.Prompts()
	total := r.plannedUnits(prompts, len(chunks))
	if r.registry.Canceled(r.requestID) {
		return nil, ErrCanceled
	}
	r.registry.Begin(r.requestID, total)
	span.Set("cortex.chunks", len(chunks)).Set("cortex.total", total)
	capitan.Emit(ctx, hooks.RequestPlanned,
		hooks.RequestIDKey.Field(r.requestID),
		hooks.PathwayKey.Field(r.pathway.Name),
		hooks.ChunksKey.Field(len(chunks)),
		hooks.TotalKey.Field(total),
	)
	if mode == Stream && len(chunks) > 1 {
		mode = Async
		r.setMode(Async)
	}
	parameters := r.parameters(args)
	if r.pathway.UseParallelChunkProcessing {
		return r.processParallel(ctx, prompts, chunks, parameters, saved)
	}
	return r.processSerial(ctx, prompts, chunks, parameters, saved, mode)
}

// plannedUnits counts the executor calls of a run: chunks times prompts,
// except that serial context only prompts run once.
func (r *Resolver) plannedUnits(prompts model.Prompts, chunks int) int {
	if r.pathway.UseParallelChunkProcessing {
		return chunks * len(prompts)
	}
	ret := 0
	for _, prompt := range prompts {
		if prompt.UsesTextInput() {
			ret += chunks
			continue
		}
		ret++
	}
	return ret
}

// processParallel runs the whole pipeline per chunk, each chunk with its own
// previous result and saved context copy. Chunk contexts are merged back in
// chunk order.
func (r *Resolver) processParallel(ctx context.Context, prompts model.Prompts, chunks []string, parameters map[string]interface{}, saved savedContext) (*output, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make([]string, len(chunks))
	contexts := make([]savedContext, len(chunks))
	var once sync.Once
	var firstErr error
	wg := sync.WaitGroup{}
	for i, chunk := range chunks {
		contexts[i] = saved.clone()
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			result, err := r.applyPromptsSerially(ctx, prompts, chunk, parameters, contexts[i])
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = result
		}(i, chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	for _, chunkContext := range contexts {
		for k, v := range chunkContext {
			saved[k] = v
		}
	}
	return &output{text: strings.Join(results, chunkSeparator)}, nil
}

func (r *Resolver) applyPromptsSerially(ctx context.Context, prompts model.Prompts, chunk string, parameters map[string]interface{}, saved savedContext) (string, error) {
	previousResult, result := "", ""
	for _, prompt := range prompts {
		previousResult = result
		res, err := r.applyPrompt(ctx, prompt, &chunk, withPrevious(parameters, previousResult), saved, false)
		if err != nil {
			return "", err
		}
		result = res.Text
		if prompt.SaveResultTo != "" {
			saved[prompt.SaveResultTo] = result
		}
	}
	return result, nil
}

// processSerial runs prompts in pipeline order; text prompts fan out across
// chunks, context only prompts run once.
func (r *Resolver) processSerial(ctx context.Context, prompts model.Prompts, chunks []string, parameters map[string]interface{}, saved savedContext, mode Mode) (*output, error) {
	budget := r.tokenBudget()
	previousResult := ""
	var out *output
	for i, prompt := range prompts {
		last := i == len(prompts)-1
		streaming := last && mode == Stream
		if !prompt.UsesTextInput() {
			previousResult = r.truncate(previousResult, 2*budget)
			res, err := r.applyPrompt(ctx, prompt, nil, withPrevious(parameters, previousResult), saved, streaming)
			if err != nil {
				return nil, err
			}
			out = &output{text: res.Text}
			if res.Streaming() {
				out.streams = []io.ReadCloser{res.Stream}
			}
		} else {
			previousResult = r.truncate(previousResult, budget)
			var err error
			if out, err = r.fanOut(ctx, prompt, chunks, withPrevious(parameters, previousResult), saved, streaming); err != nil {
				return nil, err
			}
		}
		if prompt.SaveResultTo != "" && !out.streaming() {
			saved[prompt.SaveResultTo] = out.text
		}
		if !last {
			previousResult = out.text
		}
	}
	r.mu.Lock()
	r.previousResult = previousResult
	r.mu.Unlock()
	return out, nil
}

// fanOut applies prompt to every chunk concurrently. Results are assembled
// in chunk order; the first failure cancels the remaining calls.
func (r *Resolver) fanOut(ctx context.Context, prompt *model.Prompt, chunks []string, parameters map[string]interface{}, saved savedContext, streaming bool) (*output, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make([]*executor.Result, len(chunks))
	var once sync.Once
	var firstErr error
	wg := sync.WaitGroup{}
	for i := range chunks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.applyPrompt(ctx, prompt, &chunks[i], parameters, saved, streaming)
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()
	if firstErr != nil {
		closeStreams(results)
		return nil, firstErr
	}
	ret := &output{}
	texts := make([]string, 0, len(results))
	for _, res := range results {
		if res.Streaming() {
			ret.streams = append(ret.streams, res.Stream)
			continue
		}
		texts = append(texts, res.Text)
	}
	if len(ret.streams) == 0 {
		ret.text = strings.Join(texts, chunkSeparator)
	}
	return ret, nil
}

func closeStreams(results []*executor.Result) {
	for _, res := range results {
		if res.Streaming() {
			_ = res.Stream.Close()
		}
	}
}

// parameters merges pathway input parameters with call parameters.
func (r *Resolver) parameters(args *model.Args) map[string]interface{} {
	ret := r.pathway.Parameters()
	for k, v := range args.Parameters {
		ret[k] = v
	}
	return ret
}

func withPrevious(parameters map[string]interface{}, previousResult string) map[string]interface{} {
	ret := make(map[string]interface{}, len(parameters)+1)
	for k, v := range parameters {
		ret[k] = v
	}
	ret[model.PreviousResultParameter] = previousResult
	return ret
}

func (r *Resolver) setMode(mode Mode) {
	r.mu.Lock()
	r.mode = mode
	r.mu.Unlock()
}
