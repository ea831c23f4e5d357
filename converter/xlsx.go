package converter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXConverter renders every worksheet as "## <sheet>" followed by a
// markdown table whose first row is the header.
type XLSXConverter struct{}

func (c *XLSXConverter) SupportedFormats() []string { return []string{"xlsx", "xlsm"} }

func (c *XLSXConverter) Convert(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var sheets []sheetTable
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			slog.Debug("xlsx: skipping unreadable sheet", "sheet", sheet, "error", err)
			rows = nil
		}
		sheets = append(sheets, sheetTable{Name: sheet, Rows: rows})
	}

	res := renderSheets(sheets)
	if props, err := f.GetDocProps(); err == nil && props.Title != "" {
		res.Title = props.Title
	}
	return res, nil
}

type sheetTable struct {
	Name string
	Rows [][]string
}

// renderSheets is shared by the XLSX and XLS converters.
func renderSheets(sheets []sheetTable) *Result {
	res := &Result{Metadata: map[string]any{"sheet_count": len(sheets)}}

	parts := make([]string, 0, len(sheets))
	for _, s := range sheets {
		page := "## " + s.Name + "\n" + markdownTable(trimEmptyRows(s.Rows))
		parts = append(parts, page)
		res.Pages = append(res.Pages, strings.TrimSpace(page))
	}
	res.Text = strings.TrimSpace(strings.Join(parts, "\n"))
	return res
}

func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				out = append(out, row)
				break
			}
		}
	}
	return out
}
