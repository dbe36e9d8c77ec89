package tracer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracelink/tracelink-go/internal/log"
)

// pendingTrace is the SpanBuffer-owned bookkeeping for one in-flight trace
// generation.
type pendingTrace struct {
	openCount int
	finished  []SpanData
}

// SpanBuffer is the in-memory assembly area that tracks open spans per
// trace and hands a trace to the AgentWriter the instant it is complete.
// It is safe for concurrent use by many producer goroutines.
//
// The registry mutex covers both the open_count mutation and the
// conditional removal+dispatch, so a late register can never race past the
// final finish and orphan spans or cause a double dispatch. The writer is
// invoked after the mutex is released, holding only the finished trace.
type SpanBuffer struct {
	mu       sync.Mutex
	pending  map[uint64]*pendingTrace
	writer   traceWriter
	logger   log.Logger
	discards atomic.Int64
}

// traceWriter is the narrow surface of AgentWriter that SpanBuffer depends
// on, letting tests substitute a recording double.
type traceWriter interface {
	Write(trace Trace)
	Flush(timeout time.Duration)
}

// NewSpanBuffer returns an empty SpanBuffer that dispatches completed
// traces to writer and logs discarded spans to logger.
func NewSpanBuffer(writer traceWriter, logger log.Logger) *SpanBuffer {
	return &SpanBuffer{
		pending: make(map[uint64]*pendingTrace),
		writer:  writer,
		logger:  logger,
	}
}

// RegisterSpan announces that a span belonging to ctx.TraceID exists and
// will eventually finish. Duplicate registration of the same span is a
// contract violation by the caller and is not detected here.
func (b *SpanBuffer) RegisterSpan(ctx SpanContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pt, ok := b.pending[ctx.TraceID]; ok {
		pt.openCount++
		return
	}
	b.pending[ctx.TraceID] = &pendingTrace{openCount: 1}
}

// FinishSpan appends span to the pending trace it belongs to and
// decrements that trace's open count. If the count reaches zero, the trace
// is removed from the registry and handed to the writer. A span with no
// matching RegisterSpan call is discarded and logged; it does not block
// the rest of its (real or imagined) trace from dispatching.
func (b *SpanBuffer) FinishSpan(span SpanData) {
	var dispatch Trace
	traceID := span.traceIDOf()

	b.mu.Lock()
	pt, ok := b.pending[traceID]
	if !ok {
		b.mu.Unlock()
		b.discards.Add(1)
		b.logger.Log((&errOrphanSpan{TraceID: traceID, SpanID: span.SpanID}).Error())
		return
	}
	pt.finished = append(pt.finished, span)
	pt.openCount--
	if pt.openCount <= 0 {
		delete(b.pending, traceID)
		dispatch = pt.finished
	}
	b.mu.Unlock()

	if dispatch != nil {
		b.writer.Write(dispatch)
	}
}

// Flush forwards a best-effort drain hint to the writer. It does not wait
// for in-flight traces still assembling in the buffer itself — only a
// complete trace is ever handed off, and assembly that never completes is
// never flushed by design.
func (b *SpanBuffer) Flush(timeout time.Duration) {
	b.writer.Flush(timeout)
}

// DiscardedSpans returns the number of FinishSpan calls that found no
// matching registration. Exposed for tests and diagnostics.
func (b *SpanBuffer) DiscardedSpans() int64 {
	return b.discards.Load()
}

// OpenTraceCount returns the number of traces currently assembling.
// Exposed for tests.
func (b *SpanBuffer) OpenTraceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
