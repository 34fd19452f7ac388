package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"SSPLab/internal/stats"

	"github.com/phpdave11/gofpdf"
)

// Meta is the report title block.
type Meta struct {
	Study    string `json:"study"`
	Author   string `json:"author"`
	Title    string `json:"title"`
	Notes    string `json:"notes"`
	Samples  int    `json:"samples"`
	Failures int    `json:"failures"`
}

type metric struct {
	label string
	mean  func(stats.GroupStat) float64
	std   func(stats.GroupStat) float64
}

var metrics = []metric{
	{"Max Load (N)", func(g stats.GroupStat) float64 { return float64(g.MaxLoadMean) }, func(g stats.GroupStat) float64 { return float64(g.MaxLoadStd) }},
	{"Stiffness (N/mm)", func(g stats.GroupStat) float64 { return float64(g.StiffnessMean) }, func(g stats.GroupStat) float64 { return float64(g.StiffnessStd) }},
	{"Energy (mJ)", func(g stats.GroupStat) float64 { return float64(g.EnergyMean) }, func(g stats.GroupStat) float64 { return float64(g.EnergyStd) }},
}

// Build renders the group statistics as a PDF: title block, statistics
// table, and one bar chart per metric with error bars from the group
// standard deviations.
func Build(w io.Writer, meta Meta, groups []stats.GroupStat) error {
	if meta.Title == "" {
		meta.Title = "Biomechanics Group Report"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, meta.Title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Study: %s", meta.Study))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Author: %s", meta.Author))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Samples processed: %d, skipped: %d", meta.Samples, meta.Failures))
	pdf.Ln(10)

	writeTable(pdf, groups)

	for _, m := range metrics {
		pdf.Ln(8)
		drawBarChart(pdf, m, groups)
	}

	if meta.Notes != "" {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, meta.Notes, "", "L", false)
	}

	return pdf.Output(w)
}

func writeTable(pdf *gofpdf.Fpdf, groups []stats.GroupStat) {
	header := []string{"Group", "n", "Load mean", "Load std", "Stiff mean", "Stiff std", "Energy mean", "Energy std"}
	widths := []float64{22, 10, 24, 24, 24, 24, 24, 24}

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, g := range groups {
		cells := []string{
			g.Subgroup,
			fmt.Sprintf("%d", g.Count),
			cell(float64(g.MaxLoadMean)), cell(float64(g.MaxLoadStd)),
			cell(float64(g.StiffnessMean)), cell(float64(g.StiffnessStd)),
			cell(float64(g.EnergyMean)), cell(float64(g.EnergyStd)),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func drawBarChart(pdf *gofpdf.Fpdf, m metric, groups []stats.GroupStat) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, m.label)
	pdf.Ln(8)

	const chartHeight = 40.0
	const barWidth = 24.0
	const gap = 14.0

	top := pdf.GetY()
	baseline := top + chartHeight

	scale := 0.0
	for _, g := range groups {
		v := m.mean(g)
		if s := m.std(g); !math.IsNaN(s) {
			v += s
		}
		if !math.IsNaN(v) && v > scale {
			scale = v
		}
	}
	if scale == 0 {
		scale = 1
	}

	x := pdf.GetX() + 10
	pdf.SetFillColor(120, 160, 210)
	pdf.SetDrawColor(0, 0, 0)
	for _, g := range groups {
		mean := m.mean(g)
		if math.IsNaN(mean) {
			mean = 0
		}
		h := chartHeight * mean / scale
		pdf.Rect(x, baseline-h, barWidth, h, "FD")

		if std := m.std(g); !math.IsNaN(std) {
			errPx := chartHeight * std / scale
			cx := x + barWidth/2
			pdf.Line(cx, baseline-h-errPx, cx, baseline-h+errPx)
			pdf.Line(cx-2, baseline-h-errPx, cx+2, baseline-h-errPx)
			pdf.Line(cx-2, baseline-h+errPx, cx+2, baseline-h+errPx)
		}

		pdf.SetFont("Helvetica", "", 9)
		pdf.Text(x+barWidth/2-4, baseline+4, g.Subgroup)
		pdf.Text(x+barWidth/2-6, baseline+8, fmt.Sprintf("n=%d", g.Count))

		x += barWidth + gap
	}
	pdf.SetY(baseline + 12)
}
