package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/leadmagnet/leadmagnet-cli/internal/model"
)

// XLSX renders the collection as a spreadsheet with the same columns and
// placeholder rules as the CSV contract.
func XLSX(leads []model.Lead) ([]byte, error) {
	if len(leads) == 0 {
		return nil, ErrNoLeads
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return nil, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().Value = col
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for _, field := range Row(l) {
			row.AddCell().Value = field
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "export: write xlsx")
	}
	return buf.Bytes(), nil
}

// XLSXFilename builds the spreadsheet export file name for the given instant.
func XLSXFilename(now time.Time) string {
	return fmt.Sprintf("LeadMagnet_CRM_Ready_%d.xlsx", now.UnixMilli())
}
