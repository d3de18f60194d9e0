// Package main is the entry point for the jsruntime HTTP server.
//
// The server runs untrusted JavaScript in a pool of goja sandboxes. Every
// sandbox exposes node:async_hooks (AsyncLocalStorage, AsyncResource) and the
// WHATWG TextEncoder/TextDecoder, backed by native ops.
//
// Architecture:
//
//	HTTP (gin) → middleware → sandbox pool → goja runtime
//	                                       → asynccontext manager
//	                                       → textcodec op registry
//
// The server provides:
//   - POST /v1/execute for script execution
//   - POST /v1/ops/:namespace/:name for direct text codec ops
//   - GET /v1/stats, /health and /metrics
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8080 -bridge embedder
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
