package resolver

import (
	"context"
	"errors"
	"log"

	"github.com/juicer-platform/cortex/model"
	"github.com/juicer-platform/cortex/progress"
	"github.com/juicer-platform/cortex/service/event"
	"github.com/juicer-platform/cortex/service/executor"
	"github.com/juicer-platform/cortex/service/messaging"
	"github.com/juicer-platform/cortex/tracing"
)

// applyPrompt runs a single unit: one prompt over one chunk, or over no text
// for context only prompts. A canceled request skips the call and yields an
// empty result.
func (r *Resolver) applyPrompt(ctx context.Context, prompt *model.Prompt, text *string, parameters map[string]interface{}, saved savedContext, streaming bool) (result *executor.Result, err error) {
	if r.registry.Canceled(r.requestID) {
		r.registry.Skip(r.requestID)
		return &executor.Result{}, nil
	}
	ctx, span := tracing.Start(ctx, "resolver.applyPrompt", tracing.Internal)
	defer func() { span.End(err) }()
	span.Request(r.requestID, r.pathway.Name).Set("cortex.model", r.model.Name).Set("cortex.stream", streaming)

	merged := make(map[string]interface{}, len(parameters)+len(saved))
	for k, v := range parameters {
		merged[k] = v
	}
	for k, v := range saved {
		merged[k] = v
	}
	result, err = r.executor.Execute(ctx, &executor.Call{
		RequestID:  r.requestID,
		Pathway:    r.pathway,
		Model:      r.model,
		Prompt:     prompt,
		Text:       text,
		Parameters: merged,
		Stream:     streaming,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &executor.Result{}
	}
	snapshot := r.registry.Complete(r.requestID)
	if snapshot.Completed < snapshot.Total {
		r.publishProgress(ctx, &progress.Event{RequestID: r.requestID, Progress: snapshot.Ratio()})
	}
	return result, nil
}

func (r *Resolver) newEvent(eventType string, payload *progress.Event) *event.Event[progress.Event] {
	return event.NewEvent(&event.Context{RequestID: r.requestID, Pathway: r.pathway.Name, EventType: eventType}, *payload)
}

// publish delivers terminal and stream events; it waits for transport
// capacity until ctx is done.
func (r *Resolver) publish(ctx context.Context, eventType string, payload *progress.Event) {
	if err := r.publisher.Publish(ctx, r.newEvent(eventType, payload)); err != nil {
		logPublishError(r.requestID, err)
	}
}

// publishProgress delivers an intermediate progress event. A full transport
// drops the event so units never wait on subscribers.
func (r *Resolver) publishProgress(ctx context.Context, payload *progress.Event) {
	evt := r.newEvent(event.TypeProgress, payload)
	var err error
	if o, ok := r.publisher.(offerer); ok {
		err = o.Offer(ctx, evt)
	} else {
		err = r.publisher.Publish(ctx, evt)
	}
	switch {
	case err == nil:
	case errors.Is(err, messaging.ErrFull):
		r.dropped.Do(func() {
			log.Printf("request %v: progress transport full, dropping progress events", r.requestID)
		})
	default:
		logPublishError(r.requestID, err)
	}
}
