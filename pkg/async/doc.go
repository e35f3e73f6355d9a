// Package async provides safe concurrent execution primitives for
// background tasks.
//
// SafeGo runs a function in a goroutine with panic recovery and a
// timeout, detached from the caller's cancellation. It backs the
// fire-and-forget paths: quota notifications must reach their channel
// even when the request that triggered them has already returned.
//
// WorkerPool bounds concurrency for task streams such as outbound
// notification deliveries, and Batch applies a pool to a slice of
// items, collecting errors.
//
// Related packages:
//
//   - pkg/notify: uses SafeGo and WorkerPool for delivery
//   - cmd/meridian-reconciler: uses Batch for per-tenant sweeps
package async
