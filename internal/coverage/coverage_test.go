package coverage

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/thomhuang/PharmacyFinder/internal/directory"
)

func testSnapshot(t *testing.T) *directory.Snapshot {
	t.Helper()
	snap, err := directory.NewSnapshot(directory.Dataset{
		Locations: []directory.LocationRecord{
			{City: "Bhiwandi", PostalCode: "421302", Latitude: 19.2813, Longitude: 73.0483, District: "Thane"},
			{City: "Bhiwandi", PostalCode: "421305", Latitude: 19.2967, Longitude: 73.0631, District: "Thane"},
			{City: "Kalyan", PostalCode: "421301", Latitude: 19.2437, Longitude: 73.1355, District: "Thane"},
			{City: "Delhi", PostalCode: "110001", Latitude: 28.6328, Longitude: 77.2197},
		},
		Pharmacies: []directory.Pharmacy{
			{ID: "ph1", Name: "Apollo", Latitude: 19.2820, Longitude: 73.0490, City: "Bhiwandi", PostalCode: "421302"},
			{ID: "ph2", Name: "MedPlus", Latitude: 19.2970, Longitude: 73.0630, City: "Bhiwandi", PostalCode: "421305"},
			{ID: "ph3", Name: "Wellness", Latitude: 19.2440, Longitude: 73.1350, City: "Kalyan", PostalCode: "421301"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestCompute(t *testing.T) {
	for _, workers := range []int{0, 1, 8} {
		report := Compute(testSnapshot(t), 25, workers)

		if report.PostalCodes != 4 || len(report.Entries) != 4 {
			t.Fatalf("workers=%d: got %d entries; want 4", workers, len(report.Entries))
		}
		if report.Uncovered != 1 {
			t.Fatalf("workers=%d: uncovered = %d; want 1 (Delhi)", workers, report.Uncovered)
		}

		byCode := make(map[string]Entry)
		for _, e := range report.Entries {
			byCode[e.PostalCode] = e
		}

		bhiwandi := byCode["421302"]
		if bhiwandi.InRange != 3 || bhiwandi.ExactPostal != 1 || bhiwandi.SameCity != 1 || bhiwandi.Nearby != 1 {
			t.Fatalf("unexpected entry for 421302: %+v", bhiwandi)
		}
		if bhiwandi.NearestID != "ph1" {
			t.Fatalf("nearest for 421302 = %s; want ph1", bhiwandi.NearestID)
		}

		delhi := byCode["110001"]
		if delhi.InRange != 0 || delhi.NearestID != "" {
			t.Fatalf("Delhi should have no coverage: %+v", delhi)
		}

		for i := 1; i < len(report.Entries); i++ {
			if report.Entries[i-1].PostalCode >= report.Entries[i].PostalCode {
				t.Fatal("entries not sorted by postal code")
			}
		}
	}
}

func TestWriteJSON(t *testing.T) {
	report := Compute(testSnapshot(t), 25, 2)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, report); err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Uncovered != 1 || len(decoded.Entries) != 4 {
		t.Fatalf("unexpected decoded report %+v", decoded)
	}
}

func TestExportXLSX(t *testing.T) {
	snap := testSnapshot(t)
	report := Compute(snap, 25, 2)
	issues := []directory.Issue{{Kind: directory.IssueDanglingInventory, Subject: "ghost/OTC001", Detail: "unknown pharmacy"}}

	out := filepath.Join(t.TempDir(), "reports", "coverage.xlsx")
	if err := ExportXLSX(report, issues, out); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("coverage")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("coverage sheet has %d rows; want header + 4", len(rows))
	}
	if rows[0][0] != "postal_code" || rows[1][0] != "110001" {
		t.Fatalf("unexpected rows %v", rows[:2])
	}

	kind, err := f.GetCellValue("issues", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if kind != string(directory.IssueDanglingInventory) {
		t.Fatalf("issues!A2 = %q", kind)
	}
}

func TestExportIssuesXLSX(t *testing.T) {
	issues := []directory.Issue{
		{Kind: directory.IssueUnknownPostalCode, Subject: "ph9", Detail: "postal code \"999999\" not in directory"},
		{Kind: directory.IssueDanglingInventory, Subject: "ghost/OTC001", Detail: "unknown pharmacy"},
	}

	out := filepath.Join(t.TempDir(), "issues.xlsx")
	if err := ExportIssuesXLSX(issues, out); err != nil {
		t.Fatalf("ExportIssuesXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "issues" {
		t.Fatalf("sheets = %v; want only issues", sheets)
	}
	rows, err := f.GetRows("issues")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "kind" || rows[2][1] != "ghost/OTC001" {
		t.Fatalf("unexpected rows %v", rows)
	}
}
