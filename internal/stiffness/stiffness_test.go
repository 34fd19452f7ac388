package stiffness

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linspace(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

func TestLinearFit_ExactLine(t *testing.T) {
	x := linspace(10)
	y := make([]float64, 10)
	for i, v := range x {
		y[i] = 3*v + 7
	}

	slope, intercept, r2 := LinearFit(x, y)
	assert.InDelta(t, 3.0, slope, 1e-9)
	assert.InDelta(t, 7.0, intercept, 1e-9)
	assert.InDelta(t, 1.0, r2, 1e-9)
}

func TestLinearFit_ZeroVariance(t *testing.T) {
	x := linspace(8)
	y := []float64{5, 5, 5, 5, 5, 5, 5, 5}

	slope, intercept, r2 := LinearFit(x, y)
	assert.InDelta(t, 0.0, slope, 1e-12)
	assert.InDelta(t, 5.0, intercept, 1e-12)
	assert.Equal(t, 0.0, r2, "constant y must give R2 = 0, not a division error")
}

func TestLinearFit_TooFewPoints(t *testing.T) {
	slope, intercept, r2 := LinearFit([]float64{1}, []float64{2})
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 0.0, intercept)
	assert.Equal(t, 0.0, r2)
}

func TestWindowSize(t *testing.T) {
	assert.Equal(t, 5, WindowSize(12, 0.1, 5), "fraction below minimum falls back to minimum")
	assert.Equal(t, 20, WindowSize(200, 0.1, 5))
	assert.Equal(t, 5, WindowSize(59, 0.1, 5), "floor(5.9) = 5")
	assert.Equal(t, 5, WindowSize(0, 0.1, 5))
}

func TestFindBestWindow_ExactLinearCurve(t *testing.T) {
	x := linspace(10)
	y := make([]float64, 10)
	for i, v := range x {
		y[i] = 2 * v
	}

	fit := FindBestWindow(x, y, 5, 0.99)
	require.True(t, fit.Found())
	assert.InDelta(t, 2.0, fit.Slope, 1e-6)
	assert.InDelta(t, 1.0, fit.R2, 1e-9)
	assert.Equal(t, 0, fit.Start, "first qualifying window wins ties")
	assert.Equal(t, 5, fit.End)
}

func TestFindBestWindow_CurveShorterThanWindow(t *testing.T) {
	fit := FindBestWindow([]float64{0, 1, 2}, []float64{0, 2, 4}, 5, 0.99)
	assert.False(t, fit.Found())
	assert.True(t, math.IsNaN(fit.Slope))
	assert.True(t, math.IsNaN(fit.Intercept))
	assert.True(t, math.IsNaN(fit.R2))
	assert.Equal(t, 0, fit.Start)
	assert.Equal(t, 0, fit.End)
}

func TestFindBestWindow_CurveEqualsWindow(t *testing.T) {
	// A curve exactly one window long leaves no valid start offset.
	x := linspace(5)
	y := []float64{0, 2, 4, 6, 8}
	fit := FindBestWindow(x, y, 5, 0.99)
	assert.False(t, fit.Found())
}

func TestFindBestWindow_PicksSteepestQualifyingRegion(t *testing.T) {
	// Shallow exact line up to x=9, then a steeper exact line.
	n := 20
	x := linspace(n)
	y := make([]float64, n)
	for i := range x {
		if x[i] <= 9 {
			y[i] = x[i]
		} else {
			y[i] = 9 + 5*(x[i]-9)
		}
	}

	fit := FindBestWindow(x, y, 5, 0.99)
	require.True(t, fit.Found())
	assert.InDelta(t, 5.0, fit.Slope, 1e-6)
	assert.Equal(t, 9, fit.Start, "first window fully inside the steep segment")
	assert.Equal(t, 14, fit.End)
}

func TestFindBestWindow_FallbackUsesHighestR2(t *testing.T) {
	// No window qualifies on slope: the only perfectly linear region is
	// descending, so its slope never beats the zero sentinel and the
	// fallback (highest R2 seen) must supply the answer.
	y := []float64{3, 1, 4, 1, 5, 9, 8, 7, 6, 5, 3, 1, 4, 1, 5}
	x := linspace(len(y))

	fit := FindBestWindow(x, y, 5, 0.99)
	require.True(t, fit.Found())
	assert.Equal(t, 5, fit.Start)
	assert.Equal(t, 10, fit.End)
	assert.InDelta(t, -1.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.R2, 1e-9)
}

func TestFindBestWindow_FallbackFreezesOnceQualified(t *testing.T) {
	// Steep exact region first, shallow exact region later. The late
	// region also has R2 = 1 but must not displace the qualifying
	// steep answer: only a strictly larger qualifying slope may.
	n := 20
	x := linspace(n)
	y := make([]float64, n)
	for i := range x {
		if x[i] <= 7 {
			y[i] = 10 * x[i]
		} else {
			y[i] = 70 + (x[i] - 7)
		}
	}

	fit := FindBestWindow(x, y, 5, 0.99)
	require.True(t, fit.Found())
	assert.InDelta(t, 10.0, fit.Slope, 1e-6)
	assert.Equal(t, 0, fit.Start)
	assert.Equal(t, 5, fit.End)
}

func TestFitIndices(t *testing.T) {
	x := linspace(10)
	y := make([]float64, 10)
	for i, v := range x {
		y[i] = 4*v + 1
	}

	fit, err := FitIndices(x, y, []int{7, 3, 5, 3})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, fit.Slope, 1e-9)
	assert.InDelta(t, 1.0, fit.R2, 1e-9)
	assert.Equal(t, 3, fit.Start)
	assert.Equal(t, 8, fit.End, "end bound is exclusive of the last selected index")
}

func TestFitIndices_Errors(t *testing.T) {
	x := linspace(5)
	y := linspace(5)

	_, err := FitIndices(x, y, []int{1, 9})
	assert.Error(t, err, "out of range index")

	_, err = FitIndices(x, y, []int{2, 2})
	assert.Error(t, err, "a single distinct point cannot define a line")

	_, err = FitIndices(x, y[:3], []int{0, 1})
	assert.Error(t, err, "mismatched arrays")
}
