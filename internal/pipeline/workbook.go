package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"fleettrack/internal"
)

// ReadWorkbook loads every sheet of an .xlsx file into RawSheets. Legacy
// .xls binaries are not supported by the reader; callers get a clear error
// instead of a half-parsed workbook.
func ReadWorkbook(path string) ([]internal.RawSheet, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xls") {
		return nil, fmt.Errorf("legacy .xls is not supported, save %s as .xlsx first", path)
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadWorkbookBytes(blob)
}

func ReadWorkbookBytes(blob []byte) ([]internal.RawSheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := make([]internal.RawSheet, 0, len(f.GetSheetList()))
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		sheets = append(sheets, internal.RawSheet{Name: name, Rows: rows})
	}
	return sheets, nil
}
