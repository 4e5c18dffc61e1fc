package resolver

import (
	"context"
	"fmt"
	"log"

	"github.com/juicer-platform/cortex/hooks"
	"github.com/juicer-platform/cortex/model"
	"github.com/zoobzio/capitan"
)

const summaryTargetLength = 1000

// ProcessInputText returns the ordered chunks the pipeline runs on. Text
// that fits the ceiling, or any text when chunking is disabled, yields a
// single chunk; disabled chunking truncates oversized text and records a
// warning.
func (r *Resolver) ProcessInputText(text string) []string {
	return r.processInputText(context.Background(), text)
}

func (r *Resolver) processInputText(ctx context.Context, text string) []string {
	ceiling := r.tokenBudget()
	if size := r.pathway.InputChunkSize; size > 0 && size < ceiling {
		ceiling = size
	}
	count := r.tokenizer.Count(text)
	if !r.pathway.InputChunking() || count <= ceiling {
		if count >= ceiling && !r.pathway.InputChunking() {
			warning := fmt.Sprintf("Your input is possibly too long, truncating! Text length: %d", len(text))
			r.warn(warning)
			log.Printf("request %v: %v", r.requestID, warning)
			capitan.Emit(ctx, hooks.InputTruncated,
				hooks.RequestIDKey.Field(r.requestID),
				hooks.PathwayKey.Field(r.pathway.Name),
				hooks.TokensKey.Field(count),
			)
			text = r.truncate(text, ceiling)
		}
		return []string{text}
	}
	return r.splitter.Split(text, ceiling)
}

// truncate keeps the leading n tokens when the pathway truncates from the
// front, otherwise the trailing n tokens.
func (r *Resolver) truncate(text string, n int) string {
	if r.pathway.TruncateFromFront {
		return r.tokenizer.First(text, n)
	}
	return r.tokenizer.Last(text, n)
}

// summarizeIfEnabled replaces text with the output of the summary pathway
// when the pathway asks for input summarization.
func (r *Resolver) summarizeIfEnabled(ctx context.Context, args *model.Args) (string, error) {
	if !r.pathway.UseInputSummarization {
		return args.Text, nil
	}
	if r.catalog == nil {
		return "", newConfigurationError(r.pathway.Name, "input summarization requires a catalog")
	}
	pathway, err := r.catalog.Pathway(model.SummaryPathway)
	if err != nil {
		return "", &ConfigurationError{Pathway: r.pathway.Name, Reason: err.Error()}
	}
	nested, err := New(pathway,
		WithExecutor(r.executor),
		WithCatalog(r.catalog),
		WithTokenizer(r.tokenizer),
		WithSplitter(r.splitter),
		WithContextStore(r.contexts),
		WithRegistry(r.registry),
		WithPublisher(r.publisher),
		WithParent(r.requestID),
	)
	if err != nil {
		return "", err
	}
	summaryArgs := &model.Args{Text: args.Text, Parameters: map[string]interface{}{"targetLength": summaryTargetLength}}
	for k, v := range args.Parameters {
		summaryArgs.Parameters[k] = v
	}
	response, err := nested.Resolve(ctx, summaryArgs)
	if err != nil {
		return "", fmt.Errorf("failed to summarize input: %w", err)
	}
	capitan.Emit(ctx, hooks.InputSummarized,
		hooks.RequestIDKey.Field(r.requestID),
		hooks.PathwayKey.Field(r.pathway.Name),
		hooks.TokensKey.Field(r.tokenizer.Count(response.Result)),
	)
	return response.Result, nil
}
