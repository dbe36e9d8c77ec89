package tracer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"
)

// decodeBatch decodes a msgpack body produced by packedTraces.bytes back
// into the Trace values it encoded, for tests that need to assert on the
// exact bytes an AgentWriter sent rather than just their presence.
func decodeBatch(t *testing.T, body []byte) []Trace {
	t.Helper()

	r := msgp.NewReader(bytes.NewReader(body))
	traceCount, err := r.ReadArrayHeader()
	require.NoError(t, err)

	batch := make([]Trace, 0, traceCount)
	for i := uint32(0); i < traceCount; i++ {
		spanCount, err := r.ReadArrayHeader()
		require.NoError(t, err)

		trace := make(Trace, 0, spanCount)
		for j := uint32(0); j < spanCount; j++ {
			trace = append(trace, decodeSpan(t, r))
		}
		batch = append(batch, trace)
	}
	return batch
}

func decodeSpan(t *testing.T, r *msgp.Reader) SpanData {
	t.Helper()

	fields, err := r.ReadMapHeader()
	require.NoError(t, err)

	var s SpanData
	for i := uint32(0); i < fields; i++ {
		key, err := r.ReadString()
		require.NoError(t, err)
		switch key {
		case "trace_id":
			s.TraceID, err = r.ReadUint64()
		case "span_id":
			s.SpanID, err = r.ReadUint64()
		case "parent_id":
			s.ParentID, err = r.ReadUint64()
		case "service":
			s.Service, err = r.ReadString()
		case "name":
			s.Name, err = r.ReadString()
		case "resource":
			s.Resource, err = r.ReadString()
		case "type":
			s.Type, err = r.ReadString()
		case "start":
			s.Start, err = r.ReadInt64()
		case "duration":
			s.Duration, err = r.ReadInt64()
		case "error":
			s.Error, err = r.ReadInt32()
		case "meta":
			var metaLen uint32
			metaLen, err = r.ReadMapHeader()
			require.NoError(t, err)
			if metaLen > 0 {
				s.Meta = make(map[string]string, metaLen)
			}
			for k := uint32(0); k < metaLen; k++ {
				var mk, mv string
				mk, err = r.ReadString()
				require.NoError(t, err)
				mv, err = r.ReadString()
				require.NoError(t, err)
				s.Meta[mk] = mv
			}
		default:
			t.Fatalf("unexpected field %q", key)
		}
		require.NoError(t, err)
	}
	return s
}
