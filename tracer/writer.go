package tracer

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tracelink/tracelink-go/internal/log"
	"github.com/tracelink/tracelink-go/internal/statsd"
)

// AgentWriter is a bounded, background-drained outbox: producers call
// Write to enqueue a completed Trace, a single worker goroutine drains the
// queue periodically or on explicit Flush, batches and msgpack-encodes the
// traces, POSTs them to the agent, retries on transient failure per a
// configured schedule, and routes any rate_by_service feedback in the
// response to a SamplerFeedbackSink.
//
// Grounded on the reference tracer's httpTransport/tracer worker loop: one
// goroutine owns the HttpHandle for the writer's entire lifetime, woken by
// channel selects rather than condition-variable waits.
type AgentWriter struct {
	handle          HttpHandle
	flushInterval   time.Duration
	maxQueuedTraces int
	retrySchedule   []time.Duration
	sampler         SamplerFeedbackSink
	logger          log.Logger
	statsd          statsd.Client
	clock           Clock
	limiter         *requestLimiter

	langTag       string
	langVersion   string
	tracerVersion string

	mu       sync.Mutex
	queue    []Trace
	admitted uint64

	genMu   sync.Mutex
	handled uint64
	genCh   chan struct{}

	wake        chan struct{}
	flushSignal chan struct{}
	stopCh      chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	stopped     atomic.Bool
}

// NewAgentWriter builds and starts an AgentWriter. It resolves the agent
// URL from the host/port/url_override options (§4.2's selection table),
// configures the handle, and spawns the worker goroutine before returning.
// A non-nil error means no writer was created and no goroutine was
// started.
func NewAgentWriter(opts ...AgentWriterOption) (*AgentWriter, error) {
	cfg := defaultAgentWriterConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	handle := cfg.handle
	if handle == nil {
		handle = newHTTPClientHandle()
	}

	target, unixSocketPath, err := resolveAgentURL(cfg.host, cfg.port, cfg.urlOverride)
	if err != nil {
		return nil, err
	}
	if err := handle.SetOption("url", target); err != nil {
		return nil, &ErrHandleConfig{Cause: err}
	}
	if unixSocketPath != "" {
		if err := handle.SetOption("unix_socket_path", unixSocketPath); err != nil {
			return nil, &ErrHandleConfig{Cause: err}
		}
	}
	if err := handle.SetOption("timeout_ms", "2000"); err != nil {
		return nil, &ErrHandleConfig{Cause: err}
	}

	w := &AgentWriter{
		handle:          handle,
		flushInterval:   cfg.flushInterval,
		maxQueuedTraces: cfg.maxQueuedTraces,
		retrySchedule:   cfg.retrySchedule,
		sampler:         cfg.sampler,
		logger:          cfg.logger,
		statsd:          cfg.statsd,
		clock:           cfg.clock,
		limiter:         newRequestLimiter(),
		langTag:         cfg.langTag,
		langVersion:     cfg.langVersion,
		tracerVersion:   cfg.tracerVersion,
		wake:            make(chan struct{}, 1),
		flushSignal:     make(chan struct{}, 1),
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
		genCh:           make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Write enqueues trace for transmission. It never blocks on I/O: if the
// queue is already at max_queued_traces, trace is dropped silently. The
// caller must not retain trace after this call.
func (w *AgentWriter) Write(trace Trace) {
	if w.stopped.Load() {
		return
	}

	w.mu.Lock()
	if len(w.queue) >= w.maxQueuedTraces {
		w.mu.Unlock()
		w.statsd.Incr("tracelink.writer.queue.traces_dropped", nil, 1)
		return
	}
	w.queue = append(w.queue, trace)
	w.admitted++
	becameNonEmpty := len(w.queue) == 1
	w.mu.Unlock()

	w.statsd.Incr("tracelink.writer.queue.enqueued.traces", nil, 1)
	if becameNonEmpty {
		select {
		case w.wake <- struct{}{}:
		default:
		}
	}
}

// Flush blocks until every trace Written before this call has been
// transmitted or attempted-and-dropped, or until timeout elapses,
// whichever comes first. It never waits longer than timeout even if the
// retry schedule sums to far more than that.
func (w *AgentWriter) Flush(timeout time.Duration) {
	if w.stopped.Load() {
		return
	}

	w.mu.Lock()
	target := w.admitted
	w.mu.Unlock()

	select {
	case w.flushSignal <- struct{}{}:
	default:
	}

	if target == 0 {
		return
	}

	deadline := w.clock.After(timeout)
	for {
		w.genMu.Lock()
		if w.handled >= target || w.stopped.Load() {
			w.genMu.Unlock()
			return
		}
		ch := w.genCh
		w.genMu.Unlock()

		select {
		case <-ch:
			continue
		case <-deadline:
			return
		}
	}
}

// Stop signals the worker to exit once it finishes any batch already in
// flight, waits for it to exit, and guarantees the HttpHandle is closed
// before returning. Idempotent: a second Stop call simply waits alongside
// the first.
func (w *AgentWriter) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// run is the worker goroutine: it owns the HttpHandle exclusively for the
// writer's lifetime and is the only goroutine that ever touches it.
func (w *AgentWriter) run() {
	defer func() {
		w.handle.Close()
		w.stopped.Store(true)
		close(w.done)
	}()

	ticker := w.clock.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.wake:
			w.drain(false)
		case <-ticker.C:
			w.drain(false)
		case <-w.flushSignal:
			w.drain(true)
		case <-w.stopCh:
			w.drain(true)
			return
		}
	}
}

// drain moves the entire current queue into a local batch and sends it.
// force bypasses the request-rate limiter; it is set for explicit flushes
// and the final drain on stop, which must never be delayed by the
// limiter, and unset for periodic/wake-triggered drains, which may be.
func (w *AgentWriter) drain(force bool) {
	if !force && !w.limiter.allow() {
		return
	}

	w.mu.Lock()
	batch := w.queue
	w.queue = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	w.sendBatch(batch)
	w.markHandled(uint64(len(batch)))
}

// markHandled advances the handled watermark and wakes every Flush call
// waiting for it to reach their target.
func (w *AgentWriter) markHandled(n uint64) {
	w.genMu.Lock()
	w.handled += n
	ch := w.genCh
	w.genCh = make(chan struct{})
	w.genMu.Unlock()
	close(ch)
}

// sendBatch implements the §4.2 worker loop steps 4-9: encode, set
// headers, POST with retries, and route the response.
func (w *AgentWriter) sendBatch(batch []Trace) {
	pack := &packedTraces{}
	for _, trace := range batch {
		if err := pack.add(trace); err != nil {
			w.logger.Log(fmt.Sprintf("Error encoding trace for agent request: %v", err))
		}
	}
	body := pack.bytes()

	if err := w.handle.SetOption("post_field_size", strconv.Itoa(len(body))); err != nil {
		w.logger.Log(fmt.Sprintf("Error setting agent request size: %s", err))
		w.statsd.Incr("tracelink.writer.flush.traces_dropped", nil, 1)
		return
	}
	w.handle.SetHeaders(map[string]string{
		"Content-Type":                "application/msgpack",
		"Datadog-Meta-Lang":           w.langTag,
		"Datadog-Meta-Tracer-Version": w.tracerVersion,
		"Datadog-Meta-Lang-Version":   w.langVersion,
		"X-Datadog-Trace-Count":       strconv.Itoa(len(batch)),
	})

	start := w.clock.Now()
	attempt := 0
	for {
		perfErr := w.handle.Perform(body)
		status := w.handle.ResponseStatus()
		respBody := w.handle.ResponseBody()

		if perfErr == nil && status == 200 && len(respBody) > 0 {
			w.handleSuccess(respBody)
			w.statsd.Count("tracelink.writer.flush.traces", int64(len(batch)), nil, 1)
			w.statsd.Count("tracelink.writer.flush.bytes", int64(len(body)), nil, 1)
			w.statsd.Timing("tracelink.writer.flush.duration", w.clock.Now().Sub(start), nil, 1)
			return
		}

		if attempt < len(w.retrySchedule) {
			wait := w.retrySchedule[attempt]
			attempt++
			w.statsd.Incr("tracelink.writer.flush.retries", nil, 1)
			if !w.sleepInterruptible(wait) {
				w.statsd.Incr("tracelink.writer.flush.traces_dropped", nil, 1)
				return
			}
			continue
		}

		w.logFinalFailure(perfErr, status, len(respBody) == 0)
		w.statsd.Incr("tracelink.writer.flush.traces_dropped", nil, 1)
		return
	}
}

// handleSuccess implements step 6 (parse + feed the sampler) and step 8
// (log and skip the sampler update on a parse failure) for a 200 response
// with a non-empty body.
func (w *AgentWriter) handleSuccess(body []byte) {
	canonical, hasRates, err := extractRateByService(body)
	if err != nil {
		w.logger.Log(responseParseFailureMessage(err, body))
		return
	}
	if hasRates {
		w.sampler.ApplyRates(canonical)
	}
}

// logFinalFailure implements steps 7 and 9: the exact diagnostic text
// depends on whether the failure was a transport error or a response
// status that never reached 200-with-a-body.
func (w *AgentWriter) logFinalFailure(perfErr error, status int, bodyEmpty bool) {
	if perfErr != nil {
		msg := fmt.Sprintf("Error sending traces to agent: %s", perfErr.Error())
		if de, ok := perfErr.(interface{ Detail() string }); ok {
			if d := de.Detail(); d != "" {
				msg += "\n" + d
			}
		}
		w.logger.Log(msg)
		return
	}

	switch {
	case status == 0:
		w.logger.Log("received response without an HTTP status")
	case status == 200 && bodyEmpty:
		w.logger.Log("received response without a body")
	default:
		w.logger.Log(fmt.Sprintf("received unexpected response status %d from agent", status))
	}
}

// sleepInterruptible waits for d, or returns false early if the writer is
// asked to stop mid-wait, per §5's "stop() interrupts any retry-wait".
func (w *AgentWriter) sleepInterruptible(d time.Duration) bool {
	select {
	case <-w.clock.After(d):
		return true
	case <-w.stopCh:
		return false
	}
}
