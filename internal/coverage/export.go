package coverage

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

const (
	coverageSheet = "coverage"
	issuesSheet   = "issues"
)

// ExportXLSX writes the report to a workbook with a coverage sheet and, when there
// are any, an issues sheet listing data-integrity problems.
func ExportXLSX(report Report, issues []directory.Issue, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), coverageSheet); err != nil {
		return err
	}

	headers := []string{
		"postal_code", "city", "district", "in_range",
		"exact_postal", "same_city", "nearby", "nearest_id", "nearest_km",
	}
	writeHeader(f, coverageSheet, headers)

	for i, e := range report.Entries {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(coverageSheet, cell, value)
		}

		set(1, e.PostalCode)
		set(2, e.City)
		set(3, e.District)
		set(4, e.InRange)
		set(5, e.ExactPostal)
		set(6, e.SameCity)
		set(7, e.Nearby)
		set(8, e.NearestID)
		if e.NearestID != "" {
			set(9, e.NearestKm)
		}
	}

	if len(issues) > 0 {
		if _, err := f.NewSheet(issuesSheet); err != nil {
			return err
		}
		writeIssues(f, issues)
	}
	return save(f, outputPath)
}

// ExportIssuesXLSX writes a workbook holding only the issues sheet.
func ExportIssuesXLSX(issues []directory.Issue, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), issuesSheet); err != nil {
		return err
	}
	writeIssues(f, issues)
	return save(f, outputPath)
}

func writeIssues(f *excelize.File, issues []directory.Issue) {
	writeHeader(f, issuesSheet, []string{"kind", "subject", "detail"})
	for i, issue := range issues {
		for col, value := range []string{string(issue.Kind), issue.Subject, issue.Detail} {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(issuesSheet, cell, value)
		}
	}
}

func save(f *excelize.File, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}
