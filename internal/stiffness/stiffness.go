package stiffness

import (
	"fmt"
	"math"
	"sort"
)

// Fit describes a linear region of a load-displacement curve.
// Start/End are curve indices, half-open [Start, End).
type Fit struct {
	Slope     float64 `json:"slope_n_mm"`
	Intercept float64 `json:"intercept_n"`
	R2        float64 `json:"r2"`
	Start     int     `json:"start_idx"`
	End       int     `json:"end_idx"`
}

// Found reports whether the fit holds an actual region rather than the
// not-found sentinel.
func (f Fit) Found() bool {
	return !math.IsNaN(f.Slope)
}

func notFound() Fit {
	return Fit{Slope: math.NaN(), Intercept: math.NaN(), R2: math.NaN(), Start: 0, End: 0}
}

// LinearFit computes an ordinary least-squares line through (x, y) and its
// coefficient of determination. R2 is 0 when y has zero variance.
func LinearFit(x, y []float64) (slope, intercept, r2 float64) {
	n := float64(len(x))
	if len(x) < 2 || len(x) != len(y) {
		return 0, 0, 0
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - meanX
		sxx += dx * dx
		sxy += dx * (y[i] - meanY)
	}
	if sxx != 0 {
		slope = sxy / sxx
	}
	intercept = meanY - slope*meanX

	var ssRes, ssTot float64
	for i := range x {
		pred := slope*x[i] + intercept
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 0
	}
	return slope, intercept, 1 - ssRes/ssTot
}

// WindowSize derives the scan window from curve length: a fixed fraction of
// the curve, never below the configured minimum.
func WindowSize(nPoints int, fraction float64, minWindow int) int {
	w := int(float64(nPoints) * fraction)
	if w < minWindow {
		w = minWindow
	}
	return w
}

// FindBestWindow slides a fixed-size window over the curve and returns the
// stiffest region that is linear enough.
//
// Every window gets its own least-squares fit. A window qualifies when its
// R2 meets the threshold; among qualifying windows the largest slope wins.
// Until any window qualifies, the single highest-R2 window seen so far is
// tracked as a fallback answer; that tracking stops permanently once the
// qualifying branch has produced a candidate. Ties keep the earlier window.
//
// Curves shorter than the window produce the not-found sentinel
// (NaN slope/intercept/r2, indices 0,0).
func FindBestWindow(x, y []float64, window int, r2Threshold float64) Fit {
	best := notFound()

	nPoints := len(x)
	if nPoints < window {
		return best
	}

	bestR2 := math.Inf(-1)
	bestSlope := 0.0

	for i := 0; i < nPoints-window; i++ {
		slope, intercept, r2 := LinearFit(x[i:i+window], y[i:i+window])

		if r2 >= r2Threshold && slope > bestSlope {
			bestSlope = slope
			best = Fit{Slope: slope, Intercept: intercept, R2: r2, Start: i, End: i + window}
		}

		if r2 > bestR2 && bestSlope == 0 {
			bestR2 = r2
			best = Fit{Slope: slope, Intercept: intercept, R2: r2, Start: i, End: i + window}
		}
	}

	return best
}

// FitIndices fits a line over an arbitrary selection of curve indices. This
// is the primitive behind manual region selection in the review UI: the
// reviewer drags over the plot and the selected point indices land here.
func FitIndices(x, y []float64, indices []int) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("mismatched curve arrays: %d vs %d", len(x), len(y))
	}

	// De-duplicate and order the selection so bounds are meaningful.
	seen := make(map[int]bool, len(indices))
	picked := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(x) {
			return Fit{}, fmt.Errorf("index %d out of range [0, %d)", idx, len(x))
		}
		if !seen[idx] {
			seen[idx] = true
			picked = append(picked, idx)
		}
	}
	sort.Ints(picked)

	if len(picked) < 2 {
		return Fit{}, fmt.Errorf("need at least 2 selected points, got %d", len(picked))
	}

	xs := make([]float64, len(picked))
	ys := make([]float64, len(picked))
	for i, idx := range picked {
		xs[i] = x[idx]
		ys[i] = y[idx]
	}

	slope, intercept, r2 := LinearFit(xs, ys)
	return Fit{
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		Start:     picked[0],
		End:       picked[len(picked)-1] + 1,
	}, nil
}
