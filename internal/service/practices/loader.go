package practices

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

func ReadCSV(r io.Reader, fill bool) ([]domain.Practice, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %s", constants.ErrInvalidInput, err.Error())
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: csv has no header", constants.ErrInvalidInput)
	}

	return parseRecords(records[0], records[1:], fill)
}

// ReadXLSX reads the given sheet, or the first one when sheet is empty.
func ReadXLSX(r io.Reader, sheet string, fill bool) ([]domain.Practice, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: xlsx: %s", constants.ErrInvalidInput, err.Error())
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %s", constants.ErrInvalidInput, sheet, err.Error())
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q has no header", constants.ErrInvalidInput, sheet)
	}

	return parseRecords(rows[0], rows[1:], fill)
}

// LoadFile picks the reader by extension: .xlsx/.xlsm go through excelize, anything else is CSV.
func LoadFile(path, sheet string, fill bool) ([]domain.Practice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(file, sheet, fill)
	default:
		return ReadCSV(file, fill)
	}
}
