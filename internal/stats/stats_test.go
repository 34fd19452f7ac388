package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id, subgroup string, load, stiff, energy float64) SampleRecord {
	return SampleRecord{
		Filename:  "SSP_2025-01-01_" + id + "_OPER.csv",
		SampleID:  id,
		Condition: "OPER",
		Subgroup:  subgroup,
		MaxLoadN:  JSONFloat(load),
		Stiffness: JSONFloat(stiff),
		EnergyMJ:  JSONFloat(energy),
	}
}

func TestCompute_GroupValues(t *testing.T) {
	records := []SampleRecord{
		rec("D1", "TFL", 100, 50, 200),
		rec("D2", "TFL", 120, 70, 260),
		rec("D9", "MSC", 90, 40, 150),
	}

	groups := Compute(records)
	require.Len(t, groups, 2)

	// Sorted by subgroup key: MSC before TFL.
	assert.Equal(t, "MSC", groups[0].Subgroup)
	assert.Equal(t, "TFL", groups[1].Subgroup)

	tfl := groups[1]
	assert.Equal(t, 2, tfl.Count)
	assert.InDelta(t, 110.0, float64(tfl.MaxLoadMean), 1e-9)
	assert.InDelta(t, math.Sqrt(200), float64(tfl.MaxLoadStd), 1e-9)
	assert.InDelta(t, 60.0, float64(tfl.StiffnessMean), 1e-9)
	assert.InDelta(t, 230.0, float64(tfl.EnergyMean), 1e-9)
	assert.Equal(t, "D1, D2", tfl.SampleList)
}

func TestCompute_StdUndefinedBelowTwoMembers(t *testing.T) {
	groups := Compute([]SampleRecord{rec("D9", "MSC", 90, 40, 150)})
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].Count)
	assert.InDelta(t, 90.0, float64(groups[0].MaxLoadMean), 1e-9)
	assert.True(t, groups[0].MaxLoadStd.IsNaN())
	assert.True(t, groups[0].StiffnessStd.IsNaN())
	assert.True(t, groups[0].EnergyStd.IsNaN())
}

func TestCompute_DeterministicOrder(t *testing.T) {
	records := []SampleRecord{
		rec("D9", "MSC", 90, 40, 150),
		rec("D8", "MSC", 95, 45, 160),
		rec("B5", "NON", 80, 30, 100),
		rec("B6", "NON", 85, 35, 110),
		rec("D1", "TFL", 100, 50, 200),
		rec("D2", "TFL", 105, 55, 210),
	}

	first := Compute(records)
	second := Compute(records)
	assert.Equal(t, first, second)

	keys := []string{first[0].Subgroup, first[1].Subgroup, first[2].Subgroup}
	assert.Equal(t, []string{"MSC", "NON", "TFL"}, keys)
}

func TestJSONFloat_NaNAsNull(t *testing.T) {
	groups := Compute([]SampleRecord{rec("D9", "MSC", 90, 40, 150)})
	data, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_load_std":null`)

	var back []GroupStat
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 1)
	assert.True(t, back[0].MaxLoadStd.IsNaN())
	assert.InDelta(t, 90.0, float64(back[0].MaxLoadMean), 1e-9)
}

func TestCompute_SampleListDeduplicated(t *testing.T) {
	records := []SampleRecord{
		rec("D2", "TFL", 100, 50, 200),
		rec("D1", "TFL", 120, 70, 260),
		rec("D1", "TFL", 110, 60, 230),
	}
	groups := Compute(records)
	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "D1, D2", groups[0].SampleList)
}

func TestCompute_SkipsUndefinedMetrics(t *testing.T) {
	// D3 never yielded a linear region: stiffness and R2 carry the
	// undefined sentinel, but its load and energy are real.
	sentinel := rec("D3", "TFL", 95, math.NaN(), 180)
	records := []SampleRecord{
		rec("D1", "TFL", 100, 50, 200),
		rec("D2", "TFL", 120, 70, 260),
		sentinel,
	}

	groups := Compute(records)
	require.Len(t, groups, 1)
	tfl := groups[0]

	assert.Equal(t, 3, tfl.Count)
	assert.InDelta(t, 60.0, float64(tfl.StiffnessMean), 1e-9)
	assert.InDelta(t, math.Sqrt(200), float64(tfl.StiffnessStd), 1e-9)
	assert.InDelta(t, 105.0, float64(tfl.MaxLoadMean), 1e-9)
	assert.InDelta(t, (200.0+260.0+180.0)/3, float64(tfl.EnergyMean), 1e-9)
}

func TestMeanStd(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(StdDev([]float64{1})))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
	assert.InDelta(t, 1.0, StdDev([]float64{1, 2, 3}), 1e-12)

	nan := math.NaN()
	assert.True(t, math.IsNaN(Mean([]float64{nan, nan})))
	assert.InDelta(t, 2.0, Mean([]float64{1, nan, 3}), 1e-12)
	assert.True(t, math.IsNaN(StdDev([]float64{1, nan})))
	assert.InDelta(t, math.Sqrt2, StdDev([]float64{1, nan, 3}), 1e-12)
}
