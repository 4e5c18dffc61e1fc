package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
	"github.com/juicer-platform/cortex/runtime/request"
	"github.com/juicer-platform/cortex/service/contextstore"
	"github.com/juicer-platform/cortex/service/event"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/messaging"
	"github.com/stretchr/testify/assert"
)

func TestResolve_ParallelSavedContext(t *testing.T) {
	store := contextstore.NewMemory()
	var mu sync.Mutex
	seen := map[string]interface{}{}
	exec := executor.Func(func(ctx context.Context, call *executor.Call) (*executor.Result, error) {
		text := *call.Text
		if strings.HasPrefix(call.Prompt.Template, "Tag") {
			return &executor.Result{Text: "T(" + text + ")"}, nil
		}
		if strings.HasPrefix(text, "a") {
			time.Sleep(20 * time.Millisecond)
		}
		mu.Lock()
		seen[text] = call.Parameters["tag"]
		mu.Unlock()
		return &executor.Result{Text: fmt.Sprintf("U(%v)", call.Parameters["tag"])}, nil
	})
	pathway := &model.Pathway{Name: "p", InputChunkSize: 2, UseParallelChunkProcessing: true, Prompt: model.Prompts{
		model.NewPlain("Tag {{text}}").WithSaveResultTo("tag"),
		model.NewPlain("Use {{tag}} on {{text}}"),
	}}
	r, err := New(pathway, WithExecutor(exec), WithModel(testModel()), WithContextStore(store))
	assert.NoError(t, err)
	response, err := r.Resolve(context.Background(), &model.Args{Text: "a1 a2 b1 b2"})
	assert.NoError(t, err)
	assert.Equal(t, "U(T(a1 a2))\n\nU(T(b1 b2))", response.Result)
	assert.Equal(t, map[string]interface{}{"a1 a2": "T(a1 a2)", "b1 b2": "T(b1 b2)"}, seen)

	values, err := store.Get(context.Background(), response.ContextID)
	assert.NoError(t, err)
	assert.Equal(t, "T(b1 b2)", values["tag"], "later chunks win the merge regardless of completion order")
}

func TestResolve_SerialStages(t *testing.T) {
	streamBody := "data: {\"choices\":[{\"delta\":{\"content\":\"done\"}}]}\n\ndata: [DONE]\n\n"
	var testCases = []struct {
		description    string
		pathway        *model.Pathway
		args           *model.Args
		expectMode     Mode
		expectResult   string
		expectStream   map[string]bool
		expectPrevious map[string]interface{}
		expectCalls    int
	}{
		{
			description: "context only prompt runs once over many chunks",
			pathway: &model.Pathway{Name: "p", MaxTokenLength: 20, InputChunkSize: 2, Prompt: model.Prompts{
				model.NewPlain("First {{text}}"),
				model.NewPlain("Combine {{previousResult}}"),
			}},
			args:         &model.Args{Text: "a1 a2 b1 b2"},
			expectMode:   Sync,
			expectResult: "combined",
			expectStream: map[string]bool{"First": false, "Combine": false},
			expectPrevious: map[string]interface{}{
				"First":   "",
				"Combine": "ar4 ar5 ar6 ar7 ar8 ar9\n\n" + words("br", 10),
			},
			expectCalls: 3,
		},
		{
			description: "single chunk streams only the last stage",
			pathway: &model.Pathway{Name: "p", Prompt: model.Prompts{
				model.NewPlain("First {{text}}"),
				model.NewPlain("Second {{text}} {{previousResult}}"),
				model.NewPlain("Last {{text}}"),
			}},
			args:         &model.Args{Text: "a1 a2", Stream: true},
			expectMode:   Stream,
			expectStream: map[string]bool{"First": false, "Second": false, "Last": true},
			expectPrevious: map[string]interface{}{
				"First":  "",
				"Second": words("ar", 10),
				"Last":   words("ar", 10),
			},
			expectCalls: 3,
		},
	}
	for _, testCase := range testCases {
		var mu sync.Mutex
		var calls int32
		stream := map[string]bool{}
		previous := map[string]interface{}{}
		exec := executor.Func(func(ctx context.Context, call *executor.Call) (*executor.Result, error) {
			atomic.AddInt32(&calls, 1)
			stage := strings.Fields(call.Prompt.Template)[0]
			mu.Lock()
			stream[stage] = call.Stream
			previous[stage] = call.Parameters[model.PreviousResultParameter]
			mu.Unlock()
			switch {
			case call.Stream:
				return &executor.Result{Stream: io.NopCloser(strings.NewReader(streamBody))}, nil
			case call.Text == nil:
				return &executor.Result{Text: "combined"}, nil
			}
			return &executor.Result{Text: words((*call.Text)[:1]+"r", 10)}, nil
		})
		publisher := &recorder{}
		r, err := New(testCase.pathway, WithExecutor(exec), WithModel(testModel()), WithPublisher(publisher))
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		response, err := r.Resolve(context.Background(), testCase.args)
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.Equal(t, testCase.expectMode, response.Mode, testCase.description)
		if testCase.expectMode != Sync {
			assert.NoError(t, r.Registry().Dispatch(context.Background(), r.RequestID()), testCase.description)
			events := publisher.Events()
			if assert.NotEmpty(t, events, testCase.description) {
				assert.True(t, events[len(events)-1].Data.Final(), testCase.description)
			}
		}
		if testCase.expectResult != "" {
			assert.Equal(t, testCase.expectResult, response.Result, testCase.description)
		}
		assert.EqualValues(t, testCase.expectCalls, atomic.LoadInt32(&calls), testCase.description)
		assert.Equal(t, testCase.expectStream, stream, testCase.description)
		assert.Equal(t, testCase.expectPrevious, previous, testCase.description)
		snapshot := r.Registry().Get(r.RequestID()).Progress.Snapshot()
		assert.Equal(t, testCase.expectCalls, snapshot.Total, testCase.description)
	}
}

func TestResolver_FractionalBudgetCeiling(t *testing.T) {
	pathway := &model.Pathway{Name: "p", MaxTokenLength: 13, Prompt: model.Prompts{model.NewPlain("Summarize {{text}}")}}
	r, err := New(pathway, WithExecutor(echo("")), WithModel(testModel()))
	assert.NoError(t, err)
	assert.Equal(t, 4.5, r.ChunkMaxTokenLength())
	assert.Equal(t, []string{"a b c d"}, r.ProcessInputText("a b c d"))
	assert.Len(t, r.ProcessInputText("a b c d e"), 2)
}

// fullTransport drops every offered event and blocks publishers until their
// context ends.
type fullTransport struct {
	offered int32
}

func (f *fullTransport) Publish(ctx context.Context, _ *event.Event[progress.Event]) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fullTransport) Offer(_ context.Context, _ *event.Event[progress.Event]) error {
	atomic.AddInt32(&f.offered, 1)
	return messaging.ErrFull
}

func TestResolve_FullTransportDoesNotBlock(t *testing.T) {
	transport := &fullTransport{}
	pathway := &model.Pathway{Name: "p", InputChunkSize: 2, Prompt: model.Prompts{model.NewPlain("{{text}}")}}
	r, err := New(pathway, WithExecutor(echo("ok")), WithModel(testModel()), WithPublisher(transport))
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	started := time.Now()
	response, err := r.Resolve(ctx, &model.Args{Text: words("w", 8)})
	assert.NoError(t, err)
	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, "ok\n\nok\n\nok\n\nok", response.Result)
	assert.EqualValues(t, 3, atomic.LoadInt32(&transport.offered))
}

func TestAsyncResolve_SurvivesSweep(t *testing.T) {
	registry := request.NewRegistry(request.Config{GracePeriod: time.Hour, MaxAge: time.Nanosecond})
	var evicted int32 = -1
	exec := executor.Func(func(ctx context.Context, call *executor.Call) (*executor.Result, error) {
		if strings.HasPrefix(call.Prompt.Template, "First") {
			atomic.StoreInt32(&evicted, int32(registry.Sweep(time.Now().Add(time.Hour))))
		}
		return &executor.Result{Text: "step"}, nil
	})
	publisher := &recorder{}
	pathway := &model.Pathway{Name: "p", Prompt: model.Prompts{
		model.NewPlain("First {{text}}"),
		model.NewPlain("Second {{text}}"),
	}}
	r, err := New(pathway, WithExecutor(exec), WithModel(testModel()), WithPublisher(publisher), WithRegistry(registry))
	assert.NoError(t, err)
	_, err = r.Resolve(context.Background(), &model.Args{Text: "hi", Async: true})
	assert.NoError(t, err)
	assert.NoError(t, registry.Dispatch(context.Background(), r.RequestID()))

	assert.EqualValues(t, 0, atomic.LoadInt32(&evicted))
	state := registry.Get(r.RequestID())
	if assert.NotNil(t, state) {
		assert.Equal(t, 2, state.Progress.Snapshot().Completed)
		assert.True(t, state.Done())
	}
	events := publisher.Events()
	if assert.Len(t, events, 2) {
		assert.Equal(t, 0.5, events[0].Data.Progress)
		assert.Equal(t, 1.0, events[1].Data.Progress)
		assert.Equal(t, "step", events[1].Data.Data)
	}
}

// previewExecutor renders the prompt template and text as the request body.
type previewExecutor struct {
	executor.Func
}

func (p *previewExecutor) Preview(call *executor.Call) (json.RawMessage, error) {
	return json.Marshal(map[string]interface{}{
		"prompt":         call.Prompt.Template,
		"text":           *call.Text,
		"previousResult": call.Parameters[model.PreviousResultParameter],
	})
}

func TestResolve_Debug(t *testing.T) {
	exec := &previewExecutor{Func: echo("ok")}
	pathway := &model.Pathway{Name: "p", Prompt: model.Prompts{
		model.NewPlain("A {{text}}"),
		model.NewPlain("B {{previousResult}}"),
	}}
	for _, args := range []*model.Args{{Text: "hi"}, {Text: "hi", Async: true}} {
		r, err := New(pathway, WithExecutor(exec), WithModel(testModel()))
		assert.NoError(t, err)
		response, err := r.Resolve(context.Background(), args)
		assert.NoError(t, err)
		assert.JSONEq(t, `[
			{"prompt":"A {{text}}","text":"hi","previousResult":""},
			{"prompt":"B {{previousResult}}","text":"hi","previousResult":""}
		]`, response.Debug)
	}

	r, err := New(pathway, WithExecutor(echo("ok")), WithModel(testModel()))
	assert.NoError(t, err)
	response, err := r.Resolve(context.Background(), &model.Args{Text: "hi"})
	assert.NoError(t, err)
	assert.Empty(t, response.Debug)
}
