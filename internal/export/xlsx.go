// Package export reads and writes the client list as an xlsx workbook using
// the same nine-column layout as the spreadsheet backup.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"visitroute/internal/model"
	"visitroute/internal/sheets"
)

const SheetName = "Clients"

// WriteXLSX writes the header and one row per client.
func WriteXLSX(w io.Writer, clients []model.Client) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	rows := append([][]interface{}{sheets.HeaderRow()}, sheets.ClientsToRows(clients)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	_, err := f.WriteTo(w)
	return err
}

// ReadXLSX parses the first worksheet. Columns are matched by header name so
// reordered exports still import; rows missing required fields are skipped.
func ReadXLSX(r io.Reader) ([]model.Client, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	name := f.GetSheetName(0)
	if name == "" {
		return nil, errors.New("no worksheet found")
	}
	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("worksheet is empty")
	}

	index := map[string]int{}
	for i, h := range rows[0] {
		index[normalizeHeader(h)] = i
	}
	cols := make([]int, len(sheets.Header))
	for i, h := range sheets.Header {
		idx, ok := index[strings.ToLower(h)]
		if !ok {
			if i < 4 {
				return nil, fmt.Errorf("missing column %q", h)
			}
			idx = -1
		}
		cols[i] = idx
	}

	body := make([][]interface{}, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out := make([]interface{}, len(cols))
		for i, idx := range cols {
			out[i] = cellValue(row, idx)
		}
		out[3] = normalizeDate(out[3].(string))
		body = append(body, out)
	}
	return sheets.RowsToClients(body), nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// normalizeDate accepts ISO dates and Excel serial dates.
func normalizeDate(v string) string {
	if serial, err := strconv.ParseFloat(v, 64); err == nil && serial >= 20000 && serial <= 80000 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}
