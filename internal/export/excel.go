package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ContentTypeXLSX is the media type for the generated workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	headerFontColor = "FFFFFF"
	headerFillColor = "1E3C72"
)

// RiskValue is one extracted risk parameter.
type RiskValue struct {
	ParameterID string `json:"risk_parameter_id"`
	Value       any    `json:"value"`
}

// CoverageValue is one extracted coverage parameter.
type CoverageValue struct {
	ParameterID string `json:"coverage_parameter_id"`
	Value       any    `json:"value"`
}

// ExtractionData is the structured extraction payload accepted for export.
// Unknown upstream fields are ignored.
type ExtractionData struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
	RiskValues     []RiskValue     `json:"risk_values"`
	CoverageValues []CoverageValue `json:"coverage_values"`
}

// BuildWorkbook renders the extraction into an xlsx workbook: a sheet per
// non-empty parameter table plus an always-present summary sheet.
func BuildWorkbook(data ExtractionData) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: headerFontColor},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFillColor}},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if len(data.RiskValues) > 0 {
		rows := make([][2]any, 0, len(data.RiskValues))
		for _, v := range data.RiskValues {
			rows = append(rows, [2]any{v.ParameterID, v.Value})
		}
		if err := addParameterSheet(f, "Risk Parameters", headerStyle, rows); err != nil {
			return nil, err
		}
	}

	if len(data.CoverageValues) > 0 {
		rows := make([][2]any, 0, len(data.CoverageValues))
		for _, v := range data.CoverageValues {
			rows = append(rows, [2]any{v.ParameterID, v.Value})
		}
		if err := addParameterSheet(f, "Coverage Parameters", headerStyle, rows); err != nil {
			return nil, err
		}
	}

	if err := addSummarySheet(f, headerStyle, data); err != nil {
		return nil, err
	}

	// Drop the default sheet so the workbook opens on the first data sheet.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func addParameterSheet(f *excelize.File, name string, headerStyle int, rows [][2]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := f.SetColWidth(name, "A", "A", 25); err != nil {
		return fmt.Errorf("sheet %s: set column width: %w", name, err)
	}
	if err := f.SetColWidth(name, "B", "B", 30); err != nil {
		return fmt.Errorf("sheet %s: set column width: %w", name, err)
	}
	if err := writeHeader(f, name, headerStyle, "Parameter ID", "Value"); err != nil {
		return err
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &[]any{cellValue(row[0]), cellValue(row[1])}); err != nil {
			return fmt.Errorf("sheet %s: write row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func addSummarySheet(f *excelize.File, headerStyle int, data ExtractionData) error {
	const name = "Summary"
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := f.SetColWidth(name, "A", "A", 20); err != nil {
		return fmt.Errorf("sheet %s: set column width: %w", name, err)
	}
	if err := f.SetColWidth(name, "B", "B", 40); err != nil {
		return fmt.Errorf("sheet %s: set column width: %w", name, err)
	}
	if err := writeHeader(f, name, headerStyle, "Property", "Value"); err != nil {
		return err
	}

	rows := [][2]any{
		{"Extraction ID", orNA(data.ID)},
		{"Status", orNA(data.Status)},
		{"Created At", orNA(data.CreatedAt)},
		{"Updated At", orNA(data.UpdatedAt)},
		{"Risk Parameters Count", len(data.RiskValues)},
		{"Coverage Parameters Count", len(data.CoverageValues)},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(name, cell, &[]any{row[0], row[1]}); err != nil {
			return fmt.Errorf("sheet %s: write row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, cols ...string) error {
	row := make([]any, len(cols))
	for i, col := range cols {
		row[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("sheet %s: write header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(cols))
	if err != nil {
		return fmt.Errorf("sheet %s: column name: %w", sheet, err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", style); err != nil {
		return fmt.Errorf("sheet %s: style header: %w", sheet, err)
	}
	return nil
}

// cellValue flattens structured values; excelize renders primitives natively.
func cellValue(v any) any {
	switch v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
