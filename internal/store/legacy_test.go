package store

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeLegacyXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &values); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save legacy file: %v", err)
	}
}

func TestMigrateVisitLogAddsPhotoColumn(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.xlsx")
	dst := filepath.Join(dir, "visit_logs.xlsx")

	writeLegacyXLSX(t, src, [][]string{
		{"Employee Name", "Client", "Date", "Session", "Time", "Status", "Remarks"},
		{"alice", "Acme Ltd", "2024-01-01", "Morning", "09:15:00", "Pending", "first visit"},
		{"bob", "Globex", "2024-01-02", "Afternoon", "14:00:00", "Done", ""},
	})

	migrated, err := MigrateVisitLog(src, dst)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if migrated != 2 {
		t.Fatalf("expected 2 migrated rows, got %d", migrated)
	}

	s := NewVisitStore(dst)
	records, err := s.ListByEmployee("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for alice, got %d", len(records))
	}
	want := VisitRecord{
		EmployeeName: "alice",
		Client:       "Acme Ltd",
		Date:         "2024-01-01",
		Session:      "Morning",
		Time:         "09:15:00",
		Status:       "Pending",
		Remarks:      "first visit",
		Photo:        "",
	}
	if records[0] != want {
		t.Fatalf("migrated record mismatch: got %+v, want %+v", records[0], want)
	}

	if _, err := ReadXZ(dst + ".pre-migrate.xz"); err != nil {
		t.Fatalf("expected pre-migrate backup: %v", err)
	}
}

func TestMigrateVisitLogReordersColumnsByHeader(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.xlsx")
	dst := filepath.Join(dir, "visit_logs.xlsx")

	writeLegacyXLSX(t, src, [][]string{
		{"Date", "Employee Name", "Status", "Client"},
		{"2024-01-01", "alice", "Pending", "Acme Ltd"},
	})

	if _, err := MigrateVisitLog(src, dst); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	s := NewVisitStore(dst)
	records, err := s.ListByEmployee("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Client != "Acme Ltd" || records[0].Date != "2024-01-01" {
		t.Fatalf("unexpected migrated record: %+v", records)
	}
}

func TestMigrateVisitLogRejectsUnknownLayout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "old.xlsx")

	writeLegacyXLSX(t, src, [][]string{
		{"Who", "What", "When"},
		{"alice", "Acme Ltd", "2024-01-01"},
	})

	if _, err := MigrateVisitLog(src, filepath.Join(dir, "out.xlsx")); err == nil {
		t.Fatalf("expected migration of unknown layout to fail")
	}
}
