package tracer

import "fmt"

// ErrInvalidURLScheme is returned by NewAgentWriter when url_override names
// a scheme the writer does not know how to reach the agent through.
type ErrInvalidURLScheme struct {
	Scheme string
}

func (e *ErrInvalidURLScheme) Error() string {
	return fmt.Sprintf("unsupported agent URL scheme %q", e.Scheme)
}

// ErrHandleConfig is returned by NewAgentWriter when the HttpHandle could
// not be configured with the computed options.
type ErrHandleConfig struct {
	Cause error
}

func (e *ErrHandleConfig) Error() string {
	return fmt.Sprintf("could not configure agent request handle: %v", e.Cause)
}

func (e *ErrHandleConfig) Unwrap() error { return e.Cause }

// errOrphanSpan is logged when finish_span has no matching register_span.
type errOrphanSpan struct {
	TraceID, SpanID uint64
}

func (e *errOrphanSpan) Error() string {
	return fmt.Sprintf("finished span %d has no matching registration for trace %d", e.SpanID, e.TraceID)
}
