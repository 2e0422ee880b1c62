package store

import (
	"sync"
)

var issueColumns = []string{"Employee", "Issue", "Timestamp"}

// IssueRecord is one row of the issue log. Timestamp is formatted
// "2006-01-02 15:04:05" by the caller at submission time.
type IssueRecord struct {
	Employee  string
	Issue     string
	Timestamp string
}

// IssueStore owns the issue log workbook. Rows are append-only; there is no
// update or delete path and no read endpoint on the HTTP surface. The file is
// created on first append rather than at startup.
type IssueStore struct {
	mu   sync.Mutex
	path string
}

func NewIssueStore(path string) *IssueStore {
	return &IssueStore{path: path}
}

func (s *IssueStore) Path() string { return s.path }

func (s *IssueStore) Append(rec IssueRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(issueColumns))
	if err != nil {
		if err != ErrMissingFile {
			return err
		}
		rows = [][]string{issueColumns}
	}
	rows = append(rows, []string{rec.Employee, rec.Issue, rec.Timestamp})
	return writeRows(s.path, rows)
}

// ReadAll returns every issue row in insertion order. Not exposed over HTTP;
// used by tests and operator tooling.
func (s *IssueStore) ReadAll() ([]IssueRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(issueColumns))
	if err != nil {
		if err == ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}

	records := make([]IssueRecord, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		records = append(records, IssueRecord{
			Employee:  cellValue(rows[i], 0),
			Issue:     cellValue(rows[i], 1),
			Timestamp: cellValue(rows[i], 2),
		})
	}
	return records, nil
}
