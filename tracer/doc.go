// Package tracer implements the data-plane of a tracing client: a
// SpanBuffer that assembles finished spans into complete traces, and an
// AgentWriter that batches, encodes, and ships those traces to a local
// collector agent over HTTP, retrying on transient failure and feeding
// sampling-rate advice back from the agent's response.
//
// Span construction, tag encoding, and the sampling decision itself live
// outside this package; SpanBuffer and AgentWriter only move already-built
// SpanData from producer goroutines to the agent.
//
// A typical wiring:
//
//	writer, err := tracer.NewAgentWriter(tracer.WithAgentAddr("localhost", 8126))
//	if err != nil {
//		return err
//	}
//	defer writer.Stop()
//
//	buf := tracer.NewSpanBuffer(writer, log.NewStdLogger()) // internal/log
//	buf.RegisterSpan(ctx)
//	// ... do work ...
//	buf.FinishSpan(data)
package tracer
