// Package core provides the foundational domain types and contracts used by
// ReasonMesh. It defines the core abstractions for:
//
//   - ReasoningContext (bounded, concurrently mutated session/task threads)
//   - ContextEntry (ordered history turns with type tags and token costs)
//   - InferenceRequest / InferenceResult (the unified inference surface)
//   - Stream (pull-based, single-pass streaming output)
//   - ContextCache, AgentRouter and Engine (pluggable component contracts)
//
// The package intentionally keeps implementation concerns (eviction policy,
// routing heuristics, orchestration, model providers) out of scope, exposing
// small interfaces so each component can be replaced or instrumented
// independently. All exported identifiers include concise documentation to
// aid discoverability and external consumption.
package core
