package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleFilter(t *testing.T) {
	filter := SampleFilter{MaxAccuracyMeters: 100, MaxSpeedMPS: 27.8}
	walking := 1.4
	driving := 33.0

	testCases := []struct {
		name   string
		sample LocationSample
		accept bool
	}{
		{"good fix", LocationSample{AccuracyMeters: 12, SpeedMPS: &walking}, true},
		{"accuracy at the threshold", LocationSample{AccuracyMeters: 100}, true},
		{"accuracy worse than threshold", LocationSample{AccuracyMeters: 150}, false},
		{"vehicle speed", LocationSample{AccuracyMeters: 10, SpeedMPS: &driving}, false},
		{"no speed reading", LocationSample{AccuracyMeters: 50}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.sample.CapturedAt = time.Now()
			assert.Equal(t, tc.accept, filter.Accept(tc.sample))
		})
	}
}
