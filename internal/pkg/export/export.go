package export

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
)

const (
	CSVFileName    = "ICB allocation calculations.csv"
	XLSXFileName   = "ICB allocation calculations.xlsx"
	ConfigFileName = "ICB allocation tool configuration file.json"
	BundleFileName = "ICB allocation tool.zip"

	sheetName = "Calculations"
)

// Header is the column row shared by every rendering of a table.
func Header(t domain.Table) []string {
	res := make([]string, 0, 2+len(t.Metrics)+len(t.Indices)+1)
	res = append(res, "ICB", "Place")
	for _, m := range t.Metrics {
		res = append(res, string(m))
	}
	res = append(res, t.Indices...)
	return append(res, "Error")
}

func record(t domain.Table, r domain.Row) []string {
	place := r.Label
	if r.Kind == domain.RowKindICB {
		place = ""
	}

	res := make([]string, 0, 2+len(t.Metrics)+len(t.Indices)+1)
	res = append(res, r.ICB, place)
	for _, m := range t.Metrics {
		res = append(res, strconv.FormatInt(r.Sums[m], 10))
	}
	for _, name := range t.Indices {
		v, ok := r.Index(name)
		if !ok {
			res = append(res, "")
			continue
		}
		res = append(res, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return append(res, r.Error)
}

func WriteCSV(w io.Writer, t domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t)); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(record(t, r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, t domain.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("SetSheetName: %w", err)
	}

	header := Header(t)
	headerRow := make([]any, 0, len(header))
	for _, h := range header {
		headerRow = append(headerRow, h)
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("SetSheetRow: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("NewStyle: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("SetCellStyle: %w", err)
	}

	for i, r := range t.Rows {
		row := make([]any, 0, len(header))
		place := r.Label
		if r.Kind == domain.RowKindICB {
			place = ""
		}
		row = append(row, r.ICB, place)
		for _, m := range t.Metrics {
			row = append(row, r.Sums[m])
		}
		for _, name := range t.Indices {
			v, ok := r.Index(name)
			if !ok {
				row = append(row, nil)
				continue
			}
			row = append(row, v)
		}
		row = append(row, r.Error)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("SetSheetRow: %w", err)
		}
	}

	return f.Write(w)
}

// WriteConfig writes the places document the way the tool saves it for re-upload.
func WriteConfig(w io.Writer, doc *dto.PlacesDocument) error {
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteBundle writes a zip holding the calculations as CSV and XLSX and the places document.
func WriteBundle(w io.Writer, t domain.Table, doc *dto.PlacesDocument) error {
	zw := zip.NewWriter(w)

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{CSVFileName, func(w io.Writer) error { return WriteCSV(w, t) }},
		{XLSXFileName, func(w io.Writer) error { return WriteXLSX(w, t) }},
		{ConfigFileName, func(w io.Writer) error { return WriteConfig(w, doc) }},
	}
	for _, file := range files {
		fw, err := zw.Create(file.name)
		if err != nil {
			return fmt.Errorf("zip create %s: %w", file.name, err)
		}
		if err := file.write(fw); err != nil {
			return fmt.Errorf("write %s: %w", file.name, err)
		}
	}

	return zw.Close()
}
