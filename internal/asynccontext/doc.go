/*
Package asynccontext propagates execution-scoped values across suspension
points inside a sandbox isolate.

# Overview

A Manager owns one Store per isolate. The Store exposes the current Snapshot,
an immutable ordered list of (channel, value) pairs. Channels read and write
snapshots exclusively through the Store; every write installs a brand new
Snapshot so previously captured references keep observing the values they were
captured with.

Two store implementations exist and are selected once, when the Manager is
built:

  - embedder: delegates to an EmbedderBridge (a continuation-preserving slot
    owned by the host event loop). No local copy is kept.
  - local: the Manager owns a single fallback slot for the isolate lifetime.

# Channels

	m := asynccontext.NewManager(asynccontext.NewStore(nil))
	requestID := m.NewChannel("request-id")

	_, err := requestID.Run("req-1", func(args ...any) (any, error) {
		return requestID.GetStore(), nil // "req-1"
	})

Run restores the previous binding when the callback returns, returns an error
or panics, without disturbing bindings of other channels that the callback
itself changed.

# Resources

A Resource captures the current snapshot when it is created and reinstates it
for every RunInAsyncScope call. Manager.Bind and Manager.Snapshot are the
one-shot forms of the same capture.
*/
package asynccontext
