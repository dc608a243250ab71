package apiclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, 3.0, Percentile(data, 50))
	assert.Equal(t, 5.0, Percentile(data, 100))
	assert.Equal(t, 0.0, Percentile(nil, 50))
}

func TestTrimmedMean(t *testing.T) {
	assert.Equal(t, 3.0, TrimmedMean([]float64{1, 2, 3, 4, 5}, 20))
	assert.Equal(t, 0.0, TrimmedMean(nil, 1))
	assert.Equal(t, 7.0, TrimmedMean([]float64{7}, 50))
}
