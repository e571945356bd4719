//go:build !linux || (!amd64 && !arm64)

package trace

import "context"

// run reports that no tracing backend exists for this platform. The rest of
// the pipeline (index, classify, bundle) stays portable.
func (t *Tracer) run(_ context.Context, _ Config, started chan<- error) {
	started <- ErrUnsupported
}
