package apiclient

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
)

// TrimmedMean calculates mean latency after trimming top/bottom trimPercent values.
// data must be sorted.
func TrimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = len(data) / 2
	}
	trimmed := data[trim : len(data)-trim]
	if len(trimmed) == 0 {
		return data[len(data)/2]
	}
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// Percentile calculates the p-th percentile from sorted data
func Percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}

// Summary sorts data and prints count, trimmed mean and percentiles.
func Summary(label string, data []float64) {
	sort.Float64s(data)
	fmt.Printf("%s (ms): count=%d trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
		label, len(data), TrimmedMean(data, 1.0), Percentile(data, 50), Percentile(data, 90), Percentile(data, 99))
}

// WriteCSV saves latencies to path.
func WriteCSV(path string, data []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"latency_ms"}); err != nil {
		return err
	}
	for _, d := range data {
		if err := w.Write([]string{fmt.Sprintf("%.3f", d)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
