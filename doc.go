// Package cortex resolves pathway requests against large language model
// backends.
//
// A pathway is a declarative prompt pipeline with its chunking policy. The
// Service façade loads pathways and models from configuration, runs
// requests synchronously, or defers them and delivers progress events to
// subscribers:
//
//	cfg, _ := cortex.LoadConfig(ctx, "config.yaml")
//	srv, _ := cortex.New(cortex.WithConfig(cfg))
//	_ = srv.Start(ctx)
//	defer srv.Shutdown(ctx)
//	resp, _ := srv.Resolve(ctx, "summary", &model.Args{Text: text})
//
// Asynchronous requests return a request id; Subscribe starts them and
// receives their progress events.
package cortex
