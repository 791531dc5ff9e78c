// Package testutil contains test doubles and builders used across package
// tests to reduce boilerplate when driving the orchestrator without a real
// interpreter or model provider. They are not intended for production usage.
package testutil
