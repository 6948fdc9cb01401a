// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about controller connections, topology merges, the layout
// loop and outgoing controller API calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the core packages
// free of any metrics framework. pkg/metrics provides the Prometheus
// implementation.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetConnectionHooks(m)
//	    observability.SetReconcileHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	err := src.Probe(ctx, url)
//	observability.Connection().OnProbe(ctx, url, time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Connection Hooks
// =============================================================================

// ConnectionHooks receives controller lifecycle events.
type ConnectionHooks interface {
	// OnProbe records one health probe.
	OnProbe(ctx context.Context, url string, duration time.Duration, err error)

	// OnStatusChange records a controller status transition. Statuses are
	// passed as strings ("connecting", "connected", ...); from is empty for a
	// new record and to is "disconnected" when the record is removed.
	OnStatusChange(url, from, to string)

	// OnSnapshot records a snapshot delivered from a controller stream.
	OnSnapshot(url string, nodes, links int)

	// OnStreamError records an error event from a controller stream.
	OnStreamError(url, code string, fatal bool)
}

// =============================================================================
// Reconcile Hooks
// =============================================================================

// ReconcileHooks receives events from the topology reconciler.
type ReconcileHooks interface {
	// OnMerge records one snapshot merge.
	OnMerge(source string, changed bool, removed, revived int, duration time.Duration)

	// OnPurge records nodes hard-deleted by the fade sweep or a disconnect.
	OnPurge(reason string, nodes int)

	// OnGraphSize records the merged graph size after a change.
	OnGraphSize(nodes, links, fading int)
}

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout loop.
type LayoutHooks interface {
	// OnTick records one simulation step.
	OnTick(alpha float64, duration time.Duration)

	// OnReheat records a reheat with its cause ("data", "params", "drag").
	OnReheat(cause string)

	// OnFrame records one frame published to subscribers.
	OnFrame(nodes, links int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopConnectionHooks is a no-op implementation of ConnectionHooks.
type NoopConnectionHooks struct{}

func (NoopConnectionHooks) OnProbe(context.Context, string, time.Duration, error) {}
func (NoopConnectionHooks) OnStatusChange(string, string, string)                 {}
func (NoopConnectionHooks) OnSnapshot(string, int, int)                           {}
func (NoopConnectionHooks) OnStreamError(string, string, bool)                    {}

// NoopReconcileHooks is a no-op implementation of ReconcileHooks.
type NoopReconcileHooks struct{}

func (NoopReconcileHooks) OnMerge(string, bool, int, int, time.Duration) {}
func (NoopReconcileHooks) OnPurge(string, int)                           {}
func (NoopReconcileHooks) OnGraphSize(int, int, int)                     {}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnTick(float64, time.Duration) {}
func (NoopLayoutHooks) OnReheat(string)               {}
func (NoopLayoutHooks) OnFrame(int, int)              {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	connectionHooks ConnectionHooks = NoopConnectionHooks{}
	reconcileHooks  ReconcileHooks  = NoopReconcileHooks{}
	layoutHooks     LayoutHooks     = NoopLayoutHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetConnectionHooks registers custom connection hooks.
// This should be called once at application startup.
func SetConnectionHooks(h ConnectionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		connectionHooks = h
	}
}

// SetReconcileHooks registers custom reconcile hooks.
func SetReconcileHooks(h ReconcileHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		reconcileHooks = h
	}
}

// SetLayoutHooks registers custom layout hooks.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Connection returns the registered connection hooks.
func Connection() ConnectionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return connectionHooks
}

// Reconcile returns the registered reconcile hooks.
func Reconcile() ReconcileHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return reconcileHooks
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	connectionHooks = NoopConnectionHooks{}
	reconcileHooks = NoopReconcileHooks{}
	layoutHooks = NoopLayoutHooks{}
	httpHooks = NoopHTTPHooks{}
}
