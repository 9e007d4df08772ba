// Package model defines the provider-agnostic generation boundary used by
// agents and the coordinator.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight scripting for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement Model in sub-packages so
// higher layers remain decoupled from vendor SDKs. Complete drains a
// generation into the single synchronous response the agent loop consumes.
package model
