package tracer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateByServiceSamplerApplyRates(t *testing.T) {
	s := NewRateByServiceSampler()

	_, ok := s.Rate("service:web,env:prod")
	assert.False(t, ok)

	s.ApplyRates(`{"service:web,env:prod":0.25,"service:db,env:prod":1}`)

	rate, ok := s.Rate("service:web,env:prod")
	assert.True(t, ok)
	assert.Equal(t, 0.25, rate)

	rate, ok = s.Rate("service:db,env:prod")
	assert.True(t, ok)
	assert.Equal(t, float64(1), rate)
}

func TestRateByServiceSamplerIgnoresMalformedPayload(t *testing.T) {
	s := NewRateByServiceSampler()
	s.ApplyRates(`{"service:web,env:prod":0.5}`)

	s.ApplyRates(`not json`)

	rate, ok := s.Rate("service:web,env:prod")
	assert.True(t, ok)
	assert.Equal(t, 0.5, rate)
}

func TestRateByServiceSamplerConcurrentAccess(t *testing.T) {
	s := NewRateByServiceSampler()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.ApplyRates(`{"service:web,env:prod":0.5}`)
		}()
		go func() {
			defer wg.Done()
			s.Rate("service:web,env:prod")
		}()
	}
	wg.Wait()
}

func TestNoopSinkDiscardsRates(t *testing.T) {
	var sink SamplerFeedbackSink = noopSink{}
	assert.NotPanics(t, func() { sink.ApplyRates(`{"a":1}`) })
}
