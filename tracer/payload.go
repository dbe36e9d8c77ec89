package tracer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// maxBatchLength is the maximum number of traces supported in a single
// msgpack-encoded array, per the msgpack array format family.
const maxBatchLength = 1<<32 - 1

var errBatchOverflow = fmt.Errorf("maximum msgpack batch length (%d) exceeded", maxBatchLength)

// packedTraces accumulates a batch of traces in msgpack form, the way the
// reference tracer's packedSpans accumulates spans: each trace is encoded
// as it is added, and only the outer array header is computed lazily, at
// the point the whole buffer is requested.
type packedTraces struct {
	count uint64
	buf   bytes.Buffer
}

// add msgpack-encodes trace as an array of span maps and appends it to the
// batch.
func (p *packedTraces) add(trace Trace) error {
	if p.count >= maxBatchLength {
		return errBatchOverflow
	}
	w := msgp.NewWriter(&p.buf)
	if err := w.WriteArrayHeader(uint32(len(trace))); err != nil {
		return err
	}
	for _, span := range trace {
		if err := encodeSpan(w, span); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	p.count++
	return nil
}

// encodeSpan writes a single SpanData as a msgpack map, field names
// matching the wire format the agent expects (trace_id, span_id, ...).
func encodeSpan(w *msgp.Writer, s SpanData) error {
	numFields := uint32(10)
	if len(s.Meta) > 0 {
		numFields++
	}
	if err := w.WriteMapHeader(numFields); err != nil {
		return err
	}
	fields := []struct {
		key string
		fn  func() error
	}{
		{"trace_id", func() error { return w.WriteUint64(s.TraceID) }},
		{"span_id", func() error { return w.WriteUint64(s.SpanID) }},
		{"parent_id", func() error { return w.WriteUint64(s.ParentID) }},
		{"service", func() error { return w.WriteString(s.Service) }},
		{"name", func() error { return w.WriteString(s.Name) }},
		{"resource", func() error { return w.WriteString(s.Resource) }},
		{"type", func() error { return w.WriteString(s.Type) }},
		{"start", func() error { return w.WriteInt64(s.Start) }},
		{"duration", func() error { return w.WriteInt64(s.Duration) }},
	}
	for _, f := range fields {
		if err := w.WriteString(f.key); err != nil {
			return err
		}
		if err := f.fn(); err != nil {
			return err
		}
	}
	if err := w.WriteString("error"); err != nil {
		return err
	}
	if err := w.WriteInt32(s.Error); err != nil {
		return err
	}
	if len(s.Meta) > 0 {
		if err := w.WriteString("meta"); err != nil {
			return err
		}
		if err := w.WriteMapHeader(uint32(len(s.Meta))); err != nil {
			return err
		}
		for k, v := range s.Meta {
			if err := w.WriteString(k); err != nil {
				return err
			}
			if err := w.WriteString(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// size returns the number of bytes bytes() would return.
func (p *packedTraces) size() int {
	return p.buf.Len() + arrayHeaderSize(p.count)
}

// reset clears the batch so the packedTraces can be reused.
func (p *packedTraces) reset() {
	p.count = 0
	p.buf.Reset()
}

// bytes returns the full msgpack-encoded batch: an array header for count
// traces followed by the already-encoded trace bodies. An empty batch
// yields no bytes at all.
func (p *packedTraces) bytes() []byte {
	var header [8]byte
	off := arrayHeader(&header, p.count)
	out := make([]byte, 0, p.size())
	out = append(out, header[off:]...)
	out = append(out, p.buf.Bytes()...)
	return out
}

// arrayHeader writes the msgpack array header for a slice of length n into
// out, returning the offset at which the header begins. For n == 0 nothing
// is written and the offset is 8, matching arrayHeaderSize(0) == 0.
func arrayHeader(out *[8]byte, n uint64) (off int) {
	const (
		msgpackArrayFix byte = 144
		msgpackArray16       = 0xdc
		msgpackArray32       = 0xdd
	)
	off = 8 - arrayHeaderSize(n)
	switch {
	case n == 0:
	case n <= 15:
		out[off] = msgpackArrayFix + byte(n)
	case n <= 1<<16-1:
		binary.BigEndian.PutUint64(out[:], n)
		out[off] = msgpackArray16
	default:
		binary.BigEndian.PutUint64(out[:], n)
		out[off] = msgpackArray32
	}
	return off
}

func arrayHeaderSize(n uint64) int {
	switch {
	case n == 0:
		return 0
	case n <= 15:
		return 1
	case n <= 1<<16-1:
		return 3
	default:
		return 5
	}
}
