package tracer

import (
	"encoding/json"
	"fmt"
)

// extractRateByService parses an agent response body and pulls out the
// rate_by_service object, re-serialized to compact canonical JSON for the
// SamplerFeedbackSink. hasRates is false (with a nil err) when the body
// parses but carries no rate_by_service key — not a parse failure, just
// nothing to apply.
func extractRateByService(body []byte) (canonicalJSON string, hasRates bool, err error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", false, err
	}
	raw, ok := top["rate_by_service"]
	if !ok {
		return "", false, nil
	}
	var rates map[string]float64
	if err := json.Unmarshal(raw, &rates); err != nil {
		return "", false, err
	}
	canon, err := json.Marshal(rates)
	if err != nil {
		return "", false, err
	}
	return string(canon), true, nil
}

// responseParseFailureMessage builds the §4.2 step 8 diagnostic: it must
// begin with "Unable to parse response from agent." and include a
// truncated view of the offending body.
func responseParseFailureMessage(err error, body []byte) string {
	return fmt.Sprintf("Unable to parse response from agent. Error was: %v\nError near: %s", err, truncateAroundError(body, err))
}

// truncateAroundError returns at most maxExcerptLen bytes of body centered
// on the JSON decoder's error offset (when available), with "..." markers
// where the excerpt was cut short of an edge.
func truncateAroundError(body []byte, err error) string {
	const maxExcerptLen = 50

	if len(body) <= maxExcerptLen {
		return string(body)
	}

	offset := len(body)
	switch e := err.(type) {
	case *json.SyntaxError:
		offset = int(e.Offset)
	case *json.UnmarshalTypeError:
		offset = int(e.Offset)
	}

	half := maxExcerptLen / 2
	start, end := offset-half, offset+half

	prefix, suffix := "...", "..."
	if start <= 0 {
		start, prefix = 0, ""
	}
	if end >= len(body) {
		end, suffix = len(body), ""
	}
	if start >= end {
		start, end = 0, maxExcerptLen
	}

	return prefix + string(body[start:end]) + suffix
}
