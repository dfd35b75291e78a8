package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		failures int
		base     time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 30 * time.Second},
		{200, 30 * time.Second},
	}
	for _, tt := range tests {
		for i := 0; i < 50; i++ {
			got := Exponential(time.Second, 30*time.Second, tt.failures)
			lo := time.Duration(float64(tt.base) * (1 - jitterFrac))
			hi := time.Duration(float64(tt.base) * (1 + jitterFrac))
			assert.GreaterOrEqual(t, got, lo, "failures=%d", tt.failures)
			assert.LessOrEqual(t, got, hi, "failures=%d", tt.failures)
		}
	}
}
