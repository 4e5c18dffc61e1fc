package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/juicer-platform/cortex/hooks"
	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
	"github.com/juicer-platform/cortex/service/event"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/stream"
	"github.com/zoobzio/capitan"
)

// Resolve runs the request inline for sync mode. For async and stream modes
// it registers AsyncResolve as the deferred entry of the request and returns
// the request id immediately.
func (r *Resolver) Resolve(ctx context.Context, args *model.Args) (*Response, error) {
	if args == nil {
		args = &model.Args{}
	}
	mode := ModeOf(args)
	r.setMode(mode)
	debug := r.debug(args)
	if mode != Sync {
		captured := args.Clone()
		r.registry.Defer(r.requestID, captured, func(ctx context.Context) error {
			return r.AsyncResolve(ctx, captured)
		})
		return &Response{RequestID: r.requestID, Mode: mode, Debug: debug}, nil
	}

	started := time.Now()
	r.emitStarted(ctx, mode)
	out, err := r.promptAndParse(ctx, args, mode)
	if err == nil && r.registry.Canceled(r.requestID) {
		err = ErrCanceled
	}
	if err != nil {
		r.emitFailed(ctx, err, started)
		r.registry.Ensure(r.requestID).MarkDone()
		return nil, err
	}
	r.registry.Finish(r.requestID, out.text)
	r.emitCompleted(ctx, started)
	return &Response{
		RequestID: r.requestID,
		Mode:      mode,
		Result:    out.text,
		ContextID: r.SavedContextID(),
		Warnings:  r.Warnings(),
		Debug:     debug,
	}, nil
}

// debug renders the request body of every prompt over the whole input text.
// It is empty when the executor cannot preview calls.
func (r *Resolver) debug(args *model.Args) string {
	previewer, ok := r.executor.(executor.Previewer)
	if !ok {
		return ""
	}
	parameters := withPrevious(r.parameters(args), "")
	text := args.Text
	bodies := make([]json.RawMessage, 0, len(r.Prompts()))
	for _, prompt := range r.Prompts() {
		body, err := previewer.Preview(&executor.Call{
			RequestID:  r.requestID,
			Pathway:    r.pathway,
			Model:      r.model,
			Prompt:     prompt,
			Text:       &text,
			Parameters: parameters,
		})
		if err != nil {
			log.Printf("request %v: failed to preview prompt: %v", r.requestID, err)
			return ""
		}
		bodies = append(bodies, body)
	}
	data, err := json.Marshal(bodies)
	if err != nil {
		return ""
	}
	return string(data)
}

// AsyncResolve runs a deferred request and delivers its outcome as progress
// events: the aggregated result in a final event, or relayed stream
// fragments terminated by a progress 1 event. Failures are delivered as a
// terminal event carrying the error.
func (r *Resolver) AsyncResolve(ctx context.Context, args *model.Args) (err error) {
	mode := r.Mode()
	started := time.Now()
	r.emitStarted(ctx, mode)
	defer func() {
		r.registry.Ensure(r.requestID).MarkDone()
		if err != nil {
			r.emitFailed(ctx, err, started)
			r.publish(ctx, event.TypeError, &progress.Event{RequestID: r.requestID, Error: err.Error()})
			return
		}
		r.emitCompleted(ctx, started)
	}()

	out, err := r.promptAndParse(ctx, args, mode)
	if err != nil {
		return err
	}
	if r.registry.Canceled(r.requestID) {
		closeAll(out)
		return ErrCanceled
	}
	if !out.streaming() {
		r.registry.Ensure(r.requestID).SetData(out.text)
		snapshot := r.registry.Ensure(r.requestID).Progress.Snapshot()
		r.publish(ctx, event.TypeResult, &progress.Event{RequestID: r.requestID, Progress: snapshot.Ratio(), Data: out.text})
		return nil
	}
	return r.relay(ctx, out)
}

// relay republishes every stream fragment in handle order, then publishes
// the terminal event once the handles reach their Done marker or end.
func (r *Resolver) relay(ctx context.Context, out *output) error {
	defer closeAll(out)
	for _, handle := range out.streams {
		err := stream.Relay(ctx, handle, func(e stream.Event) error {
			switch e.Kind {
			case stream.Done:
				// terminal event follows the last handle
			case stream.Malformed:
				log.Printf("request %v: skipping stream line %q: %v", r.requestID, e.Line, e.Err)
				capitan.Emit(ctx, hooks.StreamMalformed,
					hooks.RequestIDKey.Field(r.requestID),
					hooks.LineKey.Field(e.Line),
				)
			default:
				r.publish(ctx, event.TypeStream, &progress.Event{RequestID: r.requestID, Data: e.Text()})
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to relay stream: %w", err)
		}
	}
	r.publish(ctx, event.TypeResult, &progress.Event{RequestID: r.requestID, Progress: 1})
	return nil
}

func closeAll(out *output) {
	if out == nil {
		return
	}
	for _, handle := range out.streams {
		_ = handle.Close()
	}
}

func (r *Resolver) emitStarted(ctx context.Context, mode Mode) {
	capitan.Emit(ctx, hooks.RequestStarted,
		hooks.RequestIDKey.Field(r.requestID),
		hooks.PathwayKey.Field(r.pathway.Name),
		hooks.ModelKey.Field(r.model.Name),
		hooks.ModeKey.Field(mode.String()),
		hooks.PromptsKey.Field(len(r.Prompts())),
	)
}

func (r *Resolver) emitCompleted(ctx context.Context, started time.Time) {
	snapshot := r.registry.Ensure(r.requestID).Progress.Snapshot()
	capitan.Emit(ctx, hooks.RequestCompleted,
		hooks.RequestIDKey.Field(r.requestID),
		hooks.PathwayKey.Field(r.pathway.Name),
		hooks.CompletedKey.Field(snapshot.Completed),
		hooks.TotalKey.Field(snapshot.Total),
		hooks.DurationMsKey.Field(int(time.Since(started).Milliseconds())),
	)
}

func (r *Resolver) emitFailed(ctx context.Context, err error, started time.Time) {
	snapshot := r.registry.Ensure(r.requestID).Progress.Snapshot()
	signal := hooks.RequestFailed
	if errors.Is(err, ErrCanceled) {
		signal = hooks.RequestCanceled
	}
	capitan.Emit(ctx, signal,
		hooks.RequestIDKey.Field(r.requestID),
		hooks.PathwayKey.Field(r.pathway.Name),
		hooks.ErrorKey.Field(err.Error()),
		hooks.CompletedKey.Field(snapshot.Completed),
		hooks.TotalKey.Field(snapshot.Total),
		hooks.DurationMsKey.Field(int(time.Since(started).Milliseconds())),
	)
}

func logPublishError(requestID string, err error) {
	log.Printf("request %v: failed to publish progress: %v", requestID, err)
}
