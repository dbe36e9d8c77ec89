// Package statsd provides the health-metrics sink used by the agent writer.
// It is never required for correctness: every call is best-effort and all
// errors are swallowed, the way the reference tracer treats its statsd
// client.
package statsd

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Client is the narrow surface of a statsd client that the tracer core
// depends on.
type Client interface {
	Incr(name string, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Close() error
}

// New returns a Client backed by a real UDP statsd connection to addr.
// If addr is empty or the connection cannot be established, a NoopClient
// is returned instead so that callers never need to handle construction
// failure for a concern this peripheral.
func New(addr string) Client {
	if addr == "" {
		return &NoopClient{}
	}
	c, err := statsd.New(addr)
	if err != nil {
		return &NoopClient{}
	}
	return &client{c: c}
}

type client struct {
	c *statsd.Client
}

func (c *client) Incr(name string, tags []string, rate float64) error {
	return c.c.Incr(name, tags, rate)
}

func (c *client) Count(name string, value int64, tags []string, rate float64) error {
	return c.c.Count(name, value, tags, rate)
}

func (c *client) Timing(name string, value time.Duration, tags []string, rate float64) error {
	return c.c.Timing(name, value, tags, rate)
}

func (c *client) Close() error { return c.c.Close() }

// NoopClient discards every metric. It is the default when no statsd
// target is configured.
type NoopClient struct{}

func (*NoopClient) Incr(string, []string, float64) error                 { return nil }
func (*NoopClient) Count(string, int64, []string, float64) error         { return nil }
func (*NoopClient) Timing(string, time.Duration, []string, float64) error { return nil }
func (*NoopClient) Close() error                                         { return nil }
