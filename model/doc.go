// Package model defines the provider-agnostic abstractions and concrete
// helpers for invoking language models from the reasoning engine.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic, Gemini) implement the Model interface
// from this package so the engine remains decoupled from vendor SDKs.
package model
