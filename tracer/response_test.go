package tracer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRateByServiceSuccess(t *testing.T) {
	canonical, hasRates, err := extractRateByService([]byte(`{"rate_by_service":{"service:nginx,env:":0.5,"service:web,env:prod":1}}`))
	require.NoError(t, err)
	assert.True(t, hasRates)

	var got map[string]float64
	require.NoError(t, json.Unmarshal([]byte(canonical), &got))
	assert.Equal(t, map[string]float64{"service:nginx,env:": 0.5, "service:web,env:prod": 1}, got)
}

func TestExtractRateByServiceAbsentKeyIsNotAnError(t *testing.T) {
	canonical, hasRates, err := extractRateByService([]byte(`{"some_other_field":1}`))
	require.NoError(t, err)
	assert.False(t, hasRates)
	assert.Empty(t, canonical)
}

func TestExtractRateByServiceSyntaxError(t *testing.T) {
	_, hasRates, err := extractRateByService([]byte(`{"rate_by_service":`))
	require.Error(t, err)
	assert.False(t, hasRates)
	var syntaxErr *json.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

// rate_by_service present but the wrong shape (a string rather than an
// object of floats) is a shape mismatch, not a syntax error.
func TestExtractRateByServiceShapeMismatch(t *testing.T) {
	_, hasRates, err := extractRateByService([]byte(`{"rate_by_service":"not-an-object"}`))
	require.Error(t, err)
	assert.False(t, hasRates)
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)
}

// The top-level body itself can also be the wrong shape.
func TestExtractRateByServiceTopLevelShapeMismatch(t *testing.T) {
	_, hasRates, err := extractRateByService([]byte(`"just a string"`))
	require.Error(t, err)
	assert.False(t, hasRates)
	var typeErr *json.UnmarshalTypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestResponseParseFailureMessageBeginsAsRequired(t *testing.T) {
	body := []byte(`not json at all, well past the fifty character excerpt window`)
	_, _, err := extractRateByService(body)
	require.Error(t, err)

	msg := responseParseFailureMessage(err, body)
	assert.True(t, strings.HasPrefix(msg, "Unable to parse response from agent."))
	assert.Contains(t, msg, err.Error())
}

func TestTruncateAroundErrorShortBodyIsReturnedWhole(t *testing.T) {
	body := []byte(`{"bad`)
	_, _, err := extractRateByService(body)
	require.Error(t, err)
	assert.Equal(t, string(body), truncateAroundError(body, err))
}

// A long body with a syntax error is excerpted near the *json.SyntaxError's
// Offset, not anchored at the end of the body.
func TestTruncateAroundErrorCentersOnSyntaxErrorOffset(t *testing.T) {
	body := []byte(`{"rate_by_service":` + "!" + strings.Repeat("y", 300) + "ENDMARK")

	_, _, err := extractRateByService(body)
	require.Error(t, err)
	var syntaxErr *json.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)

	excerpt := truncateAroundError(body, err)
	assert.LessOrEqual(t, len(excerpt), 56) // 50 + up to two "..." markers
	assert.Contains(t, excerpt, "rate_by_service")
	assert.NotContains(t, excerpt, "ENDMARK")
}

// A long body with a shape mismatch is likewise excerpted near the
// *json.UnmarshalTypeError's Offset rather than at the end of the body.
func TestTruncateAroundErrorCentersOnUnmarshalTypeErrorOffset(t *testing.T) {
	body := []byte(`{"rate_by_service":"not-an-object","padding":"` + strings.Repeat("z", 300) + `ENDMARK"}`)

	_, _, err := extractRateByService(body)
	require.Error(t, err)
	var typeErr *json.UnmarshalTypeError
	require.ErrorAs(t, err, &typeErr)

	excerpt := truncateAroundError(body, err)
	assert.LessOrEqual(t, len(excerpt), 56)
	assert.Contains(t, excerpt, "rate_by_service")
	assert.NotContains(t, excerpt, "ENDMARK")
}

func TestTruncateAroundErrorNoEllipsisAtBodyStart(t *testing.T) {
	// The error offset sits at the very start of a body just over the
	// excerpt threshold, so the excerpt's left edge coincides with the
	// body start and should carry no leading ellipsis.
	body := []byte(`"` + strings.Repeat("a", 60) + `"`)
	err := &json.UnmarshalTypeError{Offset: 0}
	excerpt := truncateAroundError(body, err)
	assert.False(t, strings.HasPrefix(excerpt, "..."))
}

func TestTruncateAroundErrorNoEllipsisAtBodyEnd(t *testing.T) {
	body := []byte(`"` + strings.Repeat("a", 60) + `"`)
	err := &json.UnmarshalTypeError{Offset: int64(len(body))}
	excerpt := truncateAroundError(body, err)
	assert.False(t, strings.HasSuffix(excerpt, "..."))
}
