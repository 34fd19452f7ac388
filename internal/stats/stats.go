package stats

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// JSONFloat is a float64 that serializes NaN as null. JSON has no NaN
// literal, and an undefined standard deviation must not break the API.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

func (f *JSONFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*f = JSONFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = JSONFloat(v)
	return nil
}

// IsNaN reports whether the value is undefined.
func (f JSONFloat) IsNaN() bool {
	return math.IsNaN(float64(f))
}

// SampleRecord is one processed test file. Built once by the pipeline,
// never mutated afterwards.
type SampleRecord struct {
	Filename  string    `json:"filename"`
	SampleID  string    `json:"sample_id"`
	Condition string    `json:"condition"`
	Subgroup  string    `json:"subgroup"`
	TestDate  string    `json:"test_date,omitempty"`
	MaxLoadN  JSONFloat `json:"max_load_n"`
	Stiffness JSONFloat `json:"stiffness_n_mm"`
	EnergyMJ  JSONFloat `json:"energy_mj"`
	R2        JSONFloat `json:"r2"`
	StartIdx  int       `json:"linear_start_idx"`
	EndIdx    int       `json:"linear_end_idx"`
}

// GroupStat aggregates the records of one treatment subgroup.
type GroupStat struct {
	Subgroup      string    `json:"subgroup"`
	Count         int       `json:"count"`
	MaxLoadMean   JSONFloat `json:"max_load_mean"`
	MaxLoadStd    JSONFloat `json:"max_load_std"`
	StiffnessMean JSONFloat `json:"stiffness_mean"`
	StiffnessStd  JSONFloat `json:"stiffness_std"`
	EnergyMean    JSONFloat `json:"energy_mean"`
	EnergyStd     JSONFloat `json:"energy_std"`
	SampleList    string    `json:"sample_list"`
}

// Compute groups records by subgroup and returns per-group statistics,
// sorted by subgroup key so repeated runs emit identical output. Standard
// deviations are sample-based and come out NaN below two observations.
func Compute(records []SampleRecord) []GroupStat {
	byGroup := make(map[string][]SampleRecord)
	for _, rec := range records {
		byGroup[rec.Subgroup] = append(byGroup[rec.Subgroup], rec)
	}

	keys := make([]string, 0, len(byGroup))
	for k := range byGroup {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]GroupStat, 0, len(keys))
	for _, key := range keys {
		members := byGroup[key]

		loads := make([]float64, len(members))
		stiff := make([]float64, len(members))
		energy := make([]float64, len(members))
		ids := make(map[string]bool)
		for i, m := range members {
			loads[i] = float64(m.MaxLoadN)
			stiff[i] = float64(m.Stiffness)
			energy[i] = float64(m.EnergyMJ)
			ids[m.SampleID] = true
		}

		idList := make([]string, 0, len(ids))
		for id := range ids {
			idList = append(idList, id)
		}
		sort.Strings(idList)

		out = append(out, GroupStat{
			Subgroup:      key,
			Count:         len(members),
			MaxLoadMean:   JSONFloat(Mean(loads)),
			MaxLoadStd:    JSONFloat(StdDev(loads)),
			StiffnessMean: JSONFloat(Mean(stiff)),
			StiffnessStd:  JSONFloat(StdDev(stiff)),
			EnergyMean:    JSONFloat(Mean(energy)),
			EnergyStd:     JSONFloat(StdDev(energy)),
			SampleList:    strings.Join(idList, ", "),
		})
	}
	return out
}

// Mean ignores NaN inputs, so a sentinel record (no linear region found)
// does not erase its group's aggregate. NaN when no value is defined.
func Mean(values []float64) float64 {
	var sum float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// StdDev is the sample standard deviation (n-1 denominator) over the
// defined values, undefined below two observations.
func StdDev(values []float64) float64 {
	mean := Mean(values)
	var ss float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		ss += (v - mean) * (v - mean)
		n++
	}
	if n < 2 {
		return math.NaN()
	}
	return math.Sqrt(ss / float64(n-1))
}
