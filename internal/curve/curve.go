package curve

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// MinDataPoints is the minimum row count for a usable test file.
const MinDataPoints = 10

// Curve holds one sample's load-displacement series in normalized units
// (mm, N). Elapsed is optional and not used by the analysis.
type Curve struct {
	Displacement []float64 `json:"displacement_mm"`
	Load         []float64 `json:"load_n"`
	Elapsed      []float64 `json:"elapsed_sec,omitempty"`
}

// Load reads and validates a CSV test file.
func Load(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a delimited test file with a header row. Displacement comes
// from the Crossheadmm column; load from LoadN, or LoadkN converted to
// newtons. Unparseable cells become NaN, matching how the source machines
// emit gaps. Validation failures return a descriptive error so the batch
// can skip the file with a reason.
func Parse(r io.Reader) (*Curve, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}

	dispCol, loadCol, kiloCol, timeCol := -1, -1, -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Crossheadmm":
			dispCol = i
		case "LoadN":
			loadCol = i
		case "LoadkN":
			kiloCol = i
		case "Timesec":
			timeCol = i
		}
	}

	if dispCol < 0 {
		return nil, fmt.Errorf("missing required column: Crossheadmm")
	}
	if loadCol < 0 && kiloCol < 0 {
		return nil, fmt.Errorf("missing required column: LoadN")
	}

	c := &Curve{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}

		c.Displacement = append(c.Displacement, cell(row, dispCol))

		if loadCol >= 0 {
			c.Load = append(c.Load, cell(row, loadCol))
		} else {
			c.Load = append(c.Load, cell(row, kiloCol)*1000)
		}

		if timeCol >= 0 {
			c.Elapsed = append(c.Elapsed, cell(row, timeCol))
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func cell(row []string, col int) float64 {
	if col >= len(row) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func (c *Curve) validate() error {
	if len(c.Displacement) < MinDataPoints {
		return fmt.Errorf("insufficient data points: %d < %d", len(c.Displacement), MinDataPoints)
	}
	if allNaN(c.Displacement) {
		return fmt.Errorf("all displacement values are missing")
	}
	if allNaN(c.Load) {
		return fmt.Errorf("all load values are missing")
	}
	for _, v := range c.Displacement {
		if v < 0 {
			return fmt.Errorf("negative displacement values detected")
		}
	}
	return nil
}

func allNaN(values []float64) bool {
	for _, v := range values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Truncate cuts the series at the first index of maximum load, inclusive.
// That index is the failure point; everything after it is post-rupture
// unloading. Returns the truncated displacement and load slices plus the
// peak load itself.
func (c *Curve) Truncate() (x, y []float64, maxLoad float64) {
	maxIdx := 0
	maxLoad = math.Inf(-1)
	for i, v := range c.Load {
		if !math.IsNaN(v) && v > maxLoad {
			maxLoad = v
			maxIdx = i
		}
	}
	return c.Displacement[:maxIdx+1], c.Load[:maxIdx+1], maxLoad
}

// Energy integrates load over displacement with the trapezoidal rule.
// With mm and N inputs the result is in millijoules.
func Energy(x, y []float64) float64 {
	var total float64
	for i := 1; i < len(x); i++ {
		total += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return total
}
