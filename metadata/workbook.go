package metadata

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook reads document properties and the sheet count of the XLSX at
// path. Empty properties are omitted.
func Workbook(path string) (map[string]any, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	props, err := f.GetDocProps()
	if err != nil {
		return nil, fmt.Errorf("reading document properties: %w", err)
	}

	meta := map[string]any{SheetCount: len(f.GetSheetList())}
	add := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			meta[key] = val
		}
	}
	add(Author, props.Creator)
	add(Title, props.Title)
	add(Subject, props.Subject)
	add(Keywords, props.Keywords)
	add(Description, props.Description)
	add(Created, props.Created)
	add(Modified, props.Modified)
	add(LastModifiedBy, props.LastModifiedBy)
	add(Category, props.Category)
	add(Revision, props.Revision)
	return meta, nil
}
