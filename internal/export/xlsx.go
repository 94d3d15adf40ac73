package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXWriter implements SheetWriter by saving a workbook to a local file.
// An existing file at path is replaced.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter that saves to path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(ctx context.Context, data []Sheet) error {
	if len(data) == 0 {
		return fmt.Errorf("writing %s: no sheets", w.path)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("closing workbook", "path", w.path, "error", err)
		}
	}()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9EAD3"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for _, sheet := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fillSheet(f, sheet, headerStyle); err != nil {
			return fmt.Errorf("filling sheet %s: %w", sheet.Name, err)
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		slog.Warn("deleting default sheet", "error", err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

func fillSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if _, err := f.NewSheet(sheet.Name); err != nil {
		return err
	}
	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return err
		}
	}
	if len(sheet.Rows) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(max(len(sheet.Rows[0]), 1), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
		return err
	}
	return f.SetPanes(sheet.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
