package mcmc

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"sdtfit/domain/model"
)

// hdiProbability is the posterior mass covered by the reported
// highest-density interval.
const hdiProbability = 0.94

// Summarize computes posterior mean, HDI bounds and split R-hat for every
// parameter in the trace, in the trace's canonical parameter order.
func Summarize(trace *model.Trace) ([]model.Summary, error) {
	names := make([]string, 0, len(trace.Samples))
	for name := range trace.Samples {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]model.Summary, 0, len(names))
	for _, name := range names {
		flat, err := trace.Flatten(name)
		if err != nil {
			return nil, err
		}
		if len(flat) == 0 {
			return nil, fmt.Errorf("parameter %q has no draws", name)
		}
		low, high := hdi(flat, hdiProbability)
		summaries = append(summaries, model.Summary{
			Name:    name,
			Mean:    stat.Mean(flat, nil),
			HDILow:  low,
			HDIHigh: high,
			RHat:    splitRHat(trace.Samples[name]),
		})
	}
	return summaries, nil
}

// hdi finds the narrowest interval containing prob of the sorted draws.
func hdi(draws []float64, prob float64) (float64, float64) {
	sorted := make([]float64, len(draws))
	copy(sorted, draws)
	sort.Float64s(sorted)

	n := len(sorted)
	window := int(math.Ceil(prob * float64(n)))
	if window >= n {
		return sorted[0], sorted[n-1]
	}
	bestLow, bestHigh := sorted[0], sorted[window-1]
	bestWidth := bestHigh - bestLow
	for i := 1; i+window <= n; i++ {
		width := sorted[i+window-1] - sorted[i]
		if width < bestWidth {
			bestWidth = width
			bestLow, bestHigh = sorted[i], sorted[i+window-1]
		}
	}
	return bestLow, bestHigh
}

// splitRHat is the Gelman-Rubin potential scale reduction factor computed
// over chains split in half, so within-chain drift also inflates the
// statistic. Values near 1 indicate convergence.
func splitRHat(chains [][]float64) float64 {
	var halves [][]float64
	for _, draws := range chains {
		mid := len(draws) / 2
		if mid == 0 {
			return math.NaN()
		}
		halves = append(halves, draws[:mid], draws[mid:])
	}

	n := float64(len(halves[0]))
	if n < 2 {
		return math.NaN()
	}

	means := make([]float64, len(halves))
	variances := make([]float64, len(halves))
	for i, h := range halves {
		means[i] = stat.Mean(h, nil)
		variances[i] = stat.Variance(h, nil)
	}

	w := stat.Mean(variances, nil)
	b := n * stat.Variance(means, nil)
	if w == 0 {
		return math.NaN()
	}
	varPlus := (n-1)/n*w + b/n
	return math.Sqrt(varPlus / w)
}
