package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// MigrateVisitLog reconciles a legacy visit log into the current 8-column
// schema at dstPath. The source may be a .xls workbook or an .xlsx written
// before the Photo column existed; columns are matched by header name and
// the Photo cell is left blank where the source had none. The source file's
// original bytes are kept as an xz backup beside the destination. Returns
// the number of data rows migrated.
func MigrateVisitLog(srcPath, dstPath string) (int, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", srcPath, err)
	}

	rows, err := readLegacyRows(srcPath, data)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%s: worksheet is empty", srcPath)
	}

	index := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		index[normalizeHeader(header)] = i
	}
	if _, ok := index["employee name"]; !ok {
		return 0, fmt.Errorf("%s: missing Employee Name column", srcPath)
	}

	out := [][]string{visitColumns}
	for _, row := range rows[1:] {
		rec := make([]string, len(visitColumns))
		for i, header := range visitColumns {
			if srcIdx, ok := index[normalizeHeader(header)]; ok {
				rec[i] = cellValue(row, srcIdx)
			}
		}
		out = append(out, rec)
	}

	backupPath := dstPath + ".pre-migrate.xz"
	if err := writeXZ(backupPath, data); err != nil {
		return 0, err
	}
	if err := writeRows(dstPath, out); err != nil {
		return 0, err
	}
	return len(out) - 1, nil
}

func readLegacyRows(filename string, data []byte) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", filename, err)
		}
		if workbook.NumSheets() == 0 {
			return nil, fmt.Errorf("%s: no worksheet found", filename)
		}
		rows := workbook.ReadAllCells(100000)
		if len(rows) == 0 {
			return nil, fmt.Errorf("%s: worksheet is empty", filename)
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", filename, err)
		}
		defer func() { _ = file.Close() }()

		sheet := file.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("%s: no worksheet found", filename)
		}
		rows, err := file.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}
		return rows, nil
	}
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}
