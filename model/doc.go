// Package model defines the provider-agnostic code generator abstraction used
// by the orchestrator, and the helpers shared by all providers.
//
// Core goals:
//   - A single blocking Generate call per step; the orchestrator owns the loop
//   - Usage always populated so the budget can be enforced after every call
//   - Code extracted from fenced ```repl (or ```go) blocks in one place
//   - Lightweight scripted mocking for tests (MockGenerator)
//
// Providers (OpenAI compatible endpoints such as OpenRouter, and Anthropic)
// live in sub packages so higher layers stay decoupled from vendor SDKs.
package model
