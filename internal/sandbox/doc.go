/*
Package sandbox executes untrusted JavaScript inside goja isolates.

# Overview

Each Runtime owns one goja VM plus the per-isolate state that scripts rely on:

  - an event loop (setTimeout, setImmediate, queueMicrotask) on a virtual clock
  - an async context manager backing require("node:async_hooks")
  - TextEncoder / TextDecoder forwarding to a textcodec dispatch surface
  - console capture, call stack limits, timeout and cancellation interrupts

# Context propagation

With ContextBridge set to "embedder" the event loop acts as the
continuation-preserving embedder slot: a task resumes with the snapshot that
was current when it was scheduled, so

	const als = new AsyncLocalStorage();
	als.run("req-1", () => setTimeout(() => als.getStore(), 10));

observes "req-1" inside the timer. With "local" the context manager keeps its
own fallback slot and only explicit captures (AsyncResource, bind, snapshot)
carry context across tasks.

# Security Model

Sandboxed code cannot:
  - Access filesystem or network directly
  - Load modules other than the builtin async_hooks polyfill
  - Run past its timeout or schedule unbounded work

# Usage Example

	rt, err := sandbox.New(sandbox.DefaultConfig(), sandbox.WithLogger(logger))
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Execute(ctx, script)

A Pool keeps a fixed number of runtimes and resets each one on release.
*/
package sandbox
