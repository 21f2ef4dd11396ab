// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through hook interfaces with no-op defaults; the
// binary registers real implementations at startup. The validation service
// registers Prometheus-backed hooks, the CLI leaves the defaults in place.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSubmitHooks(&mySubmitHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Submit().OnSubmitStart(ctx, id, nodes, edges)
//	// ... post the pipeline ...
//	observability.Submit().OnSubmitComplete(ctx, id, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Submit Hooks
// =============================================================================

// SubmitHooks receives events from the submission boundary.
type SubmitHooks interface {
	// OnSubmitStart records a dispatched submission.
	OnSubmitStart(ctx context.Context, submissionID string, nodes, edges int)

	// OnSubmitComplete records the end of a submission. err is nil on success.
	OnSubmitComplete(ctx context.Context, submissionID string, duration time.Duration, err error)

	// OnResultDiscarded records a result that arrived after its surface closed.
	OnResultDiscarded(ctx context.Context, submissionID string)
}

// =============================================================================
// Validation Hooks
// =============================================================================

// ValidationHooks receives events from the validation service.
type ValidationHooks interface {
	// OnParse records one analysed pipeline.
	OnParse(ctx context.Context, nodes, edges int, isDAG bool, duration time.Duration)

	// OnParseError records a request that could not be analysed.
	OnParseError(ctx context.Context, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
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

// NoopSubmitHooks is a no-op implementation of SubmitHooks.
type NoopSubmitHooks struct{}

func (NoopSubmitHooks) OnSubmitStart(context.Context, string, int, int)                {}
func (NoopSubmitHooks) OnSubmitComplete(context.Context, string, time.Duration, error) {}
func (NoopSubmitHooks) OnResultDiscarded(context.Context, string)                      {}

// NoopValidationHooks is a no-op implementation of ValidationHooks.
type NoopValidationHooks struct{}

func (NoopValidationHooks) OnParse(context.Context, int, int, bool, time.Duration) {}
func (NoopValidationHooks) OnParseError(context.Context, string)                   {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	submitHooks     SubmitHooks     = NoopSubmitHooks{}
	validationHooks ValidationHooks = NoopValidationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetSubmitHooks registers custom submission hooks.
func SetSubmitHooks(h SubmitHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		submitHooks = h
	}
}

// SetValidationHooks registers custom validation service hooks.
func SetValidationHooks(h ValidationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		validationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
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

// Submit returns the registered submission hooks.
func Submit() SubmitHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return submitHooks
}

// Validation returns the registered validation hooks.
func Validation() ValidationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return validationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
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
	submitHooks = NoopSubmitHooks{}
	validationHooks = NoopValidationHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
