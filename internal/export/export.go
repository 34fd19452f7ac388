package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"SSPLab/internal/stats"

	"github.com/xuri/excelize/v2"
)

// Artifact filenames written into the results directory.
const (
	DetailedLogName = "Experiment_Master_Log_Detailed.csv"
	GroupStatsName  = "Group_Statistics_Detailed.csv"
	WorkbookName    = "Experiment_Results.xlsx"
)

var detailedHeader = []string{
	"Filename", "SampleID", "Condition", "Subgroup", "TestDate",
	"MaxLoad_N", "Stiffness_N_mm", "Energy_mJ", "R2_Score",
	"Linear_Start_Idx", "Linear_End_Idx",
}

var statsHeader = []string{
	"Subgroup", "MaxLoad_Mean", "MaxLoad_Std", "Stiffness_Mean", "Stiffness_Std",
	"Energy_Mean", "Energy_Std", "Count", "Sample_List",
}

// WriteDetailedCSV writes the per-sample master log.
func WriteDetailedCSV(path string, records []stats.SampleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(detailedHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(detailedRow(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteStatsCSV writes the group statistics table, values rounded to two
// decimals as in the study's master log.
func WriteStatsCSV(path string, groups []stats.GroupStat) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(statsHeader); err != nil {
		return err
	}
	for _, g := range groups {
		if err := w.Write(statsRow(g)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteWorkbook writes one Excel workbook with a Samples sheet and a Group
// Statistics sheet.
func WriteWorkbook(path string, records []stats.SampleRecord, groups []stats.GroupStat) error {
	f := excelize.NewFile()
	defer f.Close()

	const samplesSheet = "Samples"
	f.SetSheetName(f.GetSheetName(0), samplesSheet)

	for col, name := range detailedHeader {
		axis, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(samplesSheet, axis, name)
	}
	for row, rec := range records {
		for col, value := range detailedRow(rec) {
			axis, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(samplesSheet, axis, value)
		}
	}

	const statsSheet = "Group Statistics"
	if _, err := f.NewSheet(statsSheet); err != nil {
		return err
	}
	for col, name := range statsHeader {
		axis, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(statsSheet, axis, name)
	}
	for row, g := range groups {
		for col, value := range statsRow(g) {
			axis, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(statsSheet, axis, value)
		}
	}

	return f.SaveAs(path)
}

func detailedRow(rec stats.SampleRecord) []string {
	return []string{
		rec.Filename,
		rec.SampleID,
		rec.Condition,
		rec.Subgroup,
		rec.TestDate,
		num(float64(rec.MaxLoadN)),
		num(float64(rec.Stiffness)),
		num(float64(rec.EnergyMJ)),
		num(float64(rec.R2)),
		strconv.Itoa(rec.StartIdx),
		strconv.Itoa(rec.EndIdx),
	}
}

func statsRow(g stats.GroupStat) []string {
	return []string{
		g.Subgroup,
		num2(float64(g.MaxLoadMean)),
		num2(float64(g.MaxLoadStd)),
		num2(float64(g.StiffnessMean)),
		num2(float64(g.StiffnessStd)),
		num2(float64(g.EnergyMean)),
		num2(float64(g.EnergyStd)),
		strconv.Itoa(g.Count),
		g.SampleList,
	}
}

// NaN cells are emitted empty, the way the study's spreadsheets show an
// undefined standard deviation.
func num(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func num2(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}
