// Package export writes filtered records as a single-sheet spreadsheet.
package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/kartikbazzad/bunbase/lookup/internal/query"
	"github.com/kartikbazzad/bunbase/lookup/internal/records"
	"github.com/xuri/excelize/v2"
)

const (
	// ContentType is the MIME type of the exported workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// SheetName names the only sheet in the workbook.
	SheetName = "Data"
)

// Table is the projection written to the sheet.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// Project selects the records matching q (no paging) and lays them out in
// columns order. Date fields are rewritten as YYYY-MM-DD; absent cells are nil.
func Project(recs []records.Record, q query.Query, columns []string, dateFields []string) Table {
	isDate := make(map[string]bool, len(dateFields))
	for _, f := range dateFields {
		isDate[f] = true
	}

	matched := query.Filter(recs, q)
	rows := make([][]interface{}, 0, len(matched))
	for _, r := range matched {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			v, ok := r.Get(col)
			if !ok {
				continue
			}
			if isDate[col] {
				if day, ok := records.ParseDay(v); ok {
					row[i] = day.ISO()
					continue
				}
			}
			row[i] = cellValue(v)
		}
		rows = append(rows, row)
	}
	return Table{Columns: columns, Rows: rows}
}

func cellValue(v records.Value) interface{} {
	if f, ok := v.Number(); ok {
		return f
	}
	return v.String()
}

// Write serializes t as an xlsx workbook to w.
func Write(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ExportTable filters recs with q and returns the xlsx bytes with columns in
// fieldOrder.
func ExportTable(recs []records.Record, q query.Query, fieldOrder []string, dateFields []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, Project(recs, q, fieldOrder, dateFields)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns the attachment name for an export taken at t.
func Filename(t time.Time) string {
	return "export-" + t.Format("20060102-150405") + ".xlsx"
}
