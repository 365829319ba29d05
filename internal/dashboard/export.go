package dashboard

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the exported list.
const SheetName = "Contratos"

// XLSXContentType is the media type of WriteXLSX output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{"Título", "Tipo", "Valor", "Contratante", "Contratado", "Criado em"}

// WriteXLSX writes the view's items as a one-sheet workbook, newest first.
func WriteXLSX(w io.Writer, v View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	for i, it := range v.Items {
		row := []any{it.Title, it.ContractType, it.Value, it.ContractorName, it.ContractedName, it.CreatedAt.Format("02/01/2006 15:04")}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "B", "F", 20); err != nil {
		return err
	}
	return f.Write(w)
}
