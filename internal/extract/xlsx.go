package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseXLSX renders each non-empty sheet as "## <sheet>" followed by a pipe table.
func parseXLSX(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	var blocks []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		table := markdownTable(trimEmptyRows(rows))
		if table == "" {
			continue
		}
		blocks = append(blocks, "## "+sheet+"\n\n"+table)
	}
	return joinBlocks(blocks), nil
}

func trimEmptyRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, r := range rows {
		for _, c := range r {
			if c != "" {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
