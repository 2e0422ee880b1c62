package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestVisitStore(t *testing.T) *VisitStore {
	t.Helper()
	s := NewVisitStore(filepath.Join(t.TempDir(), "visit_logs.xlsx"))
	if err := s.Init(); err != nil {
		t.Fatalf("init visit store: %v", err)
	}
	return s
}

func TestVisitStoreInitCreatesHeaderOnlyFile(t *testing.T) {
	s := newTestVisitStore(t)
	count, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty store, got %d rows", count)
	}

	rows, err := readRows(s.Path(), len(visitColumns))
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected header row only, got %d rows", len(rows))
	}
	for i, want := range visitColumns {
		if rows[0][i] != want {
			t.Fatalf("header column %d: got %q, want %q", i, rows[0][i], want)
		}
	}
}

func TestVisitStoreAppendGrowsByOneAndPreservesFields(t *testing.T) {
	s := newTestVisitStore(t)

	rec := VisitRecord{
		EmployeeName: "alice",
		Client:       "Acme Ltd",
		Date:         "2024-01-01",
		Session:      "Morning",
		Time:         "09:15:00",
		Status:       "Pending",
		Remarks:      "first visit",
		Photo:        "alice_20240101091500.jpg",
	}
	if err := s.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	count, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}

	records, err := s.ListByEmployee("alice")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0] != rec {
		t.Fatalf("round trip mismatch: got %+v, want %+v", records[0], rec)
	}
}

func TestVisitStoreAppendWithoutFileCreatesIt(t *testing.T) {
	s := NewVisitStore(filepath.Join(t.TempDir(), "visit_logs.xlsx"))
	if err := s.Append(VisitRecord{EmployeeName: "alice", Date: "2024-01-01"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	count, err := s.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestVisitStoreUpdateStatusTouchesEveryMatch(t *testing.T) {
	s := newTestVisitStore(t)

	for _, status := range []string{"Pending", "In Progress"} {
		if err := s.Append(VisitRecord{EmployeeName: "alice", Date: "2024-01-01", Status: status}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := s.Append(VisitRecord{EmployeeName: "bob", Date: "2024-01-01", Status: "Pending"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	updated, err := s.UpdateStatus("alice", "2024-01-01", "Done")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}

	aliceRecords, err := s.ListByEmployee("alice")
	if err != nil {
		t.Fatalf("list alice: %v", err)
	}
	for i, rec := range aliceRecords {
		if rec.Status != "Done" {
			t.Fatalf("alice row %d: status %q, want Done", i, rec.Status)
		}
	}

	bobRecords, err := s.ListByEmployee("bob")
	if err != nil {
		t.Fatalf("list bob: %v", err)
	}
	if bobRecords[0].Status != "Pending" {
		t.Fatalf("bob's status changed: %q", bobRecords[0].Status)
	}
}

func TestVisitStoreUpdateStatusNoMatchLeavesStoreUnchanged(t *testing.T) {
	s := newTestVisitStore(t)
	if err := s.Append(VisitRecord{EmployeeName: "alice", Date: "2024-01-01", Status: "Pending"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	if _, err := s.UpdateStatus("alice", "2024-02-02", "Done"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("expected store file to be untouched after no-match update")
	}
}

func TestVisitStoreUpdateStatusMissingFile(t *testing.T) {
	s := NewVisitStore(filepath.Join(t.TempDir(), "absent.xlsx"))
	if _, err := s.UpdateStatus("alice", "2024-01-01", "Done"); !errors.Is(err, ErrMissingFile) {
		t.Fatalf("expected ErrMissingFile, got %v", err)
	}
}

func TestVisitStoreExportBytesMatchesFile(t *testing.T) {
	s := newTestVisitStore(t)
	if err := s.Append(VisitRecord{EmployeeName: "alice", Date: "2024-01-01"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	exported, err := s.ExportBytes()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	onDisk, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !bytes.Equal(exported, onDisk) {
		t.Fatalf("export differs from file on disk")
	}
}

func TestVisitStoreRewriteKeepsBackup(t *testing.T) {
	s := newTestVisitStore(t)
	firstWrite, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	if err := s.Append(VisitRecord{EmployeeName: "alice", Date: "2024-01-01"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	restored, err := ReadXZ(s.Path() + ".bak.xz")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if !bytes.Equal(restored, firstWrite) {
		t.Fatalf("backup does not match pre-rewrite contents")
	}
}
