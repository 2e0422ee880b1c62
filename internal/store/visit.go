package store

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// visitColumns is the fixed schema of the visit log workbook. Older files
// predating the Photo column are reconciled by the migrate subcommand, not at
// read time.
var visitColumns = []string{"Employee Name", "Client", "Date", "Session", "Time", "Status", "Remarks", "Photo"}

// VisitRecord is one row of the visit log. Date is caller-supplied free-form
// text; Time is stamped by the server when the row is written. Photo is the
// stored upload filename, or "" when no photo was attached.
type VisitRecord struct {
	EmployeeName string
	Client       string
	Date         string
	Session      string
	Time         string
	Status       string
	Remarks      string
	Photo        string
}

// VisitStore owns the visit log workbook. Every mutation is a full
// read-modify-write of the file, serialized behind mu so concurrent requests
// cannot lose each other's rows.
type VisitStore struct {
	mu   sync.Mutex
	path string
}

func NewVisitStore(path string) *VisitStore {
	return &VisitStore{path: path}
}

func (s *VisitStore) Path() string { return s.path }

// Init creates the workbook with only the header row when it does not exist
// yet, matching first-boot behavior.
func (s *VisitStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	return writeRows(s.path, [][]string{visitColumns})
}

// Append adds one row, preserving insertion order.
func (s *VisitStore) Append(rec VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(visitColumns))
	if err != nil {
		if err != ErrMissingFile {
			return err
		}
		rows = [][]string{visitColumns}
	}
	rows = append(rows, []string{
		rec.EmployeeName,
		rec.Client,
		rec.Date,
		rec.Session,
		rec.Time,
		rec.Status,
		rec.Remarks,
		rec.Photo,
	})
	return writeRows(s.path, rows)
}

// UpdateStatus overwrites Status on every row whose employee name and date
// both match. The (employee, date) pair is not unique, so multiple rows may
// change in one call; that is deliberate. Returns ErrNoMatch when nothing
// matched and ErrMissingFile when the workbook does not exist.
func (s *VisitStore) UpdateStatus(employeeName, date, status string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(visitColumns))
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := 1; i < len(rows); i++ {
		if cellValue(rows[i], 0) == employeeName && cellValue(rows[i], 2) == date {
			rows[i][5] = status
			updated++
		}
	}
	if updated == 0 {
		return 0, ErrNoMatch
	}
	if err := writeRows(s.path, rows); err != nil {
		return 0, err
	}
	return updated, nil
}

// ListByEmployee returns the employee's rows in insertion order.
func (s *VisitStore) ListByEmployee(employeeName string) ([]VisitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(visitColumns))
	if err != nil {
		if err == ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}

	var records []VisitRecord
	for i := 1; i < len(rows); i++ {
		if !strings.EqualFold(cellValue(rows[i], 0), employeeName) {
			continue
		}
		records = append(records, recordFromRow(rows[i]))
	}
	return records, nil
}

// ExportBytes returns the raw workbook for download, byte-identical to the
// file on disk at call time.
func (s *VisitStore) ExportBytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMissingFile
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

// Count returns the number of data rows, excluding the header.
func (s *VisitStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(visitColumns))
	if err != nil {
		if err == ErrMissingFile {
			return 0, nil
		}
		return 0, err
	}
	return len(rows) - 1, nil
}

func recordFromRow(row []string) VisitRecord {
	return VisitRecord{
		EmployeeName: cellValue(row, 0),
		Client:       cellValue(row, 1),
		Date:         cellValue(row, 2),
		Session:      cellValue(row, 3),
		Time:         cellValue(row, 4),
		Status:       cellValue(row, 5),
		Remarks:      cellValue(row, 6),
		Photo:        cellValue(row, 7),
	}
}
