package tracer

import (
	"encoding/json"
	"sync"
)

// SamplerFeedbackSink receives per-service sampling-rate advice fed back
// from the agent's response body. The sampling-decision algorithm itself is
// out of scope for this module; this interface is the feedback channel
// into it.
type SamplerFeedbackSink interface {
	ApplyRates(canonicalJSON string)
}

// RateByServiceSampler is a concrete SamplerFeedbackSink that keeps the
// most recently advertised rate for each service key, the way the
// reference tracer's rateSampler keeps a single rate under a read-write
// lock (here generalized to one rate per service key rather than one
// global rate).
type RateByServiceSampler struct {
	mu    sync.RWMutex
	rates map[string]float64
}

// NewRateByServiceSampler returns an empty RateByServiceSampler.
func NewRateByServiceSampler() *RateByServiceSampler {
	return &RateByServiceSampler{rates: make(map[string]float64)}
}

// ApplyRates parses canonicalJSON (the compact JSON of the rate_by_service
// object) and replaces the current rate table with it. A malformed payload
// is ignored; the sink keeps whatever rates it had before.
func (s *RateByServiceSampler) ApplyRates(canonicalJSON string) {
	var rates map[string]float64
	if err := json.Unmarshal([]byte(canonicalJSON), &rates); err != nil {
		return
	}
	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()
}

// Rate returns the current rate for service, and whether one has been
// advertised for it.
func (s *RateByServiceSampler) Rate(service string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rates[service]
	return r, ok
}

// noopSink discards sampler feedback. Used when the caller configures no
// SamplerFeedbackSink.
type noopSink struct{}

func (noopSink) ApplyRates(string) {}
