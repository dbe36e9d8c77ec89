package tracer

import (
	"runtime"
	"time"

	"github.com/tracelink/tracelink-go/internal/log"
	"github.com/tracelink/tracelink-go/internal/statsd"
)

const (
	defaultHost            = "localhost"
	defaultPort            = uint16(8126)
	defaultFlushInterval   = 2 * time.Second
	defaultMaxQueuedTraces = 1000
	defaultTracerVersion   = "1.0.0"
	defaultLangTag         = "go"
)

// agentWriterConfig accumulates AgentWriterOption values before
// NewAgentWriter resolves them into a running writer.
type agentWriterConfig struct {
	handle HttpHandle

	host        string
	port        uint16
	urlOverride string

	flushInterval   time.Duration
	maxQueuedTraces int
	retrySchedule   []time.Duration

	sampler SamplerFeedbackSink
	logger  log.Logger
	statsd  statsd.Client
	clock   Clock

	langTag       string
	langVersion   string
	tracerVersion string
}

func defaultAgentWriterConfig() *agentWriterConfig {
	return &agentWriterConfig{
		host:            defaultHost,
		port:            defaultPort,
		flushInterval:   defaultFlushInterval,
		maxQueuedTraces: defaultMaxQueuedTraces,
		sampler:         noopSink{},
		logger:          log.NewStdLogger(),
		statsd:          &statsd.NoopClient{},
		clock:           NewRealClock(),
		langTag:         defaultLangTag,
		langVersion:     runtime.Version(),
		tracerVersion:   defaultTracerVersion,
	}
}

// AgentWriterOption configures a value returned by NewAgentWriter, following
// the functional-options convention the reference tracer uses for its own
// StartOption/Option types.
type AgentWriterOption func(*agentWriterConfig)

// WithAgentAddr sets the host and port used to compute the agent URL when
// no override is given.
func WithAgentAddr(host string, port uint16) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.host = host
		c.port = port
	}
}

// WithURLOverride sets the url_override value from §4.2's URL selection
// table, taking precedence over WithAgentAddr's host and port for the
// target host/scheme (though host/port still form the request URL for
// unix:// and bare-path overrides, whose connections are all dialed to the
// socket path).
func WithURLOverride(url string) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.urlOverride = url
	}
}

// WithFlushInterval sets the periodic background flush cadence.
func WithFlushInterval(d time.Duration) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.flushInterval = d
	}
}

// WithMaxQueuedTraces bounds the in-memory trace count; writes beyond the
// bound are dropped silently.
func WithMaxQueuedTraces(n int) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.maxQueuedTraces = n
	}
}

// WithRetrySchedule sets the backoff durations tried between POST attempts
// for a single batch. An empty schedule means no retries: one attempt only.
func WithRetrySchedule(schedule []time.Duration) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.retrySchedule = schedule
	}
}

// WithSamplerFeedbackSink installs the sink that receives rate_by_service
// updates parsed from the agent's response body.
func WithSamplerFeedbackSink(s SamplerFeedbackSink) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.sampler = s
	}
}

// WithLogger installs the diagnostic sink the writer logs to.
func WithLogger(l log.Logger) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.logger = l
	}
}

// WithStatsdClient installs the health-metrics client. The default is a
// no-op client, so this option is only needed to observe the metrics.
func WithStatsdClient(s statsd.Client) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.statsd = s
	}
}

// WithClock overrides the monotonic time source. Tests use this to drive
// periodic-flush timing deterministically without sleeping.
func WithClock(clk Clock) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.clock = clk
	}
}

// withHandle substitutes the HttpHandle implementation. Exported only
// within the package: production callers always get the real HTTP handle
// that NewAgentWriter builds from the host/port/url_override rules; tests
// use it to inject an in-memory double.
func withHandle(h HttpHandle) AgentWriterOption {
	return func(c *agentWriterConfig) {
		c.handle = h
	}
}
