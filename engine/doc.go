// Package engine provides the central orchestration layer of ReasonMesh,
// coordinating context state, capability routing, and model execution for
// every inference that flows through the system.
//
// # Architecture Overview
//
// The engine sits between callers and the lower layers, owning the full
// lifecycle of an inference from request to recorded outcome:
//
//	┌─────────────────────────────────────────────┐
//	│                   Engine                    │
//	│  (lifecycle, concurrency, metrics, hooks)   │
//	└──────────┬──────────────┬──────────┬────────┘
//	           │              │          │
//	     ┌─────▼─────┐  ┌─────▼─────┐  ┌─▼───────┐
//	     │  Context  │  │   Agent   │  │  Model  │
//	     │   Cache   │  │  Router   │  │ Backend │
//	     │  (LRU)    │  │  (EWMA)   │  │ (LLMs)  │
//	     └───────────┘  └───────────┘  └─────────┘
//
// # Core Responsibilities
//
//  1. Context Management: Creates reasoning contexts, stores them in the
//     configured cache, and appends conversation entries under the
//     configured history window.
//
//  2. Agent Resolution: Maps each inference request to an agent type,
//     either directly or by consulting the router for the best-scoring
//     agent serving a required capability.
//
//  3. Inference Execution: Assembles the prompt from context history,
//     dispatches it to the model backend bound to the resolved agent
//     type, and returns either a complete result or a live stream.
//
//  4. Outcome Accounting: Feeds observed latency and success back into
//     the router's performance profiles and maintains engine-level
//     counters for completed and in-flight inferences.
//
//  5. Lifecycle Hooks: Runs registered callbacks before inference, after
//     completion, and on error, allowing validation and audit logic to
//     observe the pipeline without modifying it.
//
// # Execution Model
//
// Synchronous inferences block until the model backend delivers its final
// response, then return a fully populated InferenceResult. Streaming
// inferences return immediately with a Stream attached to the result; a
// producer goroutine forwards fragments as the backend emits them and
// folds usage and latency into the engine metrics once the stream
// completes. A stream abandoned through context cancellation records
// nothing.
//
// Concurrency is bounded by MaxConcurrentInferences when configured;
// additional requests wait for a slot or fail when their context is
// cancelled. Every in-flight inference is individually addressable and
// can be cancelled through CancelInference.
//
// # Usage
//
//	e := engine.New(func(o *engine.Options) {
//		o.Model = myModel
//	})
//
//	rc := e.CreateContext("session-1", func(o *core.ContextOptions) {
//		o.Priority = core.PriorityHigh
//	})
//
//	e.RegisterAgentType("copywriter", "generate_posts")
//
//	result, err := e.ProcessInference(ctx, core.InferenceRequest{
//		ContextID:          rc.ID,
//		Prompt:             "Draft a launch announcement.",
//		RequiredCapability: "generate_posts",
//	})
//
// The zero-configuration engine is fully functional: it wires an LRU
// context cache, an empty router, and a deterministic mock model, which
// makes it suitable for tests and local development without credentials.
package engine
