package converter

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
)

// XLSConverter reads legacy BIFF8 workbooks. Output matches XLSXConverter.
type XLSConverter struct{}

func (c *XLSConverter) SupportedFormats() []string { return []string{"xls"} }

func (c *XLSConverter) Convert(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLS: %w", err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading XLS: %w", err)
	}

	var sheets []sheetTable
	for i := 0; i < wb.GetNumberSheets(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet, err := wb.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}

		var rows [][]string
		for _, row := range sheet.GetRows() {
			rows = append(rows, xlsRowValues(row.GetCols()))
		}
		sheets = append(sheets, sheetTable{Name: sheet.GetName(), Rows: rows})
	}
	return renderSheets(sheets), nil
}

func xlsRowValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		val := col.GetString()
		if val == "" {
			if num := col.GetFloat64(); num != 0 {
				val = strconv.FormatFloat(num, 'f', -1, 64)
			} else if in := col.GetInt64(); in != 0 {
				val = strconv.FormatInt(in, 10)
			}
		}
		out = append(out, val)
	}
	return out
}
