package tracer

// SpanContext identifies a span for the purposes of registering it with a
// SpanBuffer. It carries just enough information to key the buffer's
// registry and, for root/remote spans, to propagate baggage.
type SpanContext struct {
	TraceID uint64
	SpanID  uint64
	Origin  string
	Baggage map[string]string
}

// SpanData is the serialized, owned form of a finished span produced by the
// front-end (tag encoding, context propagation, and span construction are
// out of scope for this module; SpanData is the opaque payload that
// crosses the boundary).
type SpanData struct {
	TraceID  uint64
	SpanID   uint64
	ParentID uint64
	Service  string
	Name     string
	Resource string
	Type     string
	Start    int64 // ns since epoch
	Duration int64 // ns
	Error    int32
	Meta     map[string]string
}

// traceIDOf exposes the trace_id accessor spec.md requires SpanData carry.
func (s SpanData) traceIDOf() uint64 { return s.TraceID }

// Trace is an ordered sequence of finished spans sharing a trace_id. Once
// handed to an AgentWriter it has exactly one owner; producers must not
// retain or mutate the slice after calling Write.
type Trace []SpanData
