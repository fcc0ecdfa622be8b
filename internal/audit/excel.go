package audit

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Workbook is the sink for a bookings report: one sheet per section,
// a header row, then data rows.
type Workbook interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []any) error
	Save(w io.Writer) error
	Close() error
}

const (
	maxSheetName = 31
	minColWidth  = 8
	maxColWidth  = 60
)

// xlsxWorkbook writes the report with excelize. Raw table sheets carry
// time.Time values from SQLite; those are rendered as text in loc so the
// admin sees the same clock as the bookings sheet.
type xlsxWorkbook struct {
	file   *excelize.File
	loc    *time.Location
	sheet  string
	row    int
	widths map[string][]int
}

func newXLSXWorkbook(loc *time.Location) Workbook {
	return &xlsxWorkbook{
		file:   excelize.NewFile(),
		loc:    loc,
		widths: make(map[string][]int),
	}
}

// sheetName strips characters Excel refuses in sheet names and truncates to its limit.
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if utf8.RuneCountInString(name) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

// AddSheet starts a new section. The workbook's default sheet is reused for the first one.
func (w *xlsxWorkbook) AddSheet(name string) error {
	name = sheetName(name)

	if w.sheet == "" {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}

	w.sheet = name
	w.row = 1
	return nil
}

// WriteHeader writes a bold header row and keeps it visible while scrolling.
func (w *xlsxWorkbook) WriteHeader(columns []string) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	if err := w.writeCells(values); err != nil {
		return err
	}

	if style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		first, _ := excelize.CoordinatesToCellName(1, w.row)
		last, _ := excelize.CoordinatesToCellName(len(columns), w.row)
		_ = w.file.SetCellStyle(w.sheet, first, last, style)
	}
	_ = w.file.SetPanes(w.sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      w.row,
		TopLeftCell: fmt.Sprintf("A%d", w.row+1),
		ActivePane:  "bottomLeft",
	})

	w.row++
	return nil
}

// WriteRow appends a data row to the current sheet.
func (w *xlsxWorkbook) WriteRow(row []any) error {
	if err := w.writeCells(row); err != nil {
		return err
	}
	w.row++
	return nil
}

func (w *xlsxWorkbook) writeCells(values []any) error {
	if w.sheet == "" {
		return fmt.Errorf("no active sheet")
	}

	widths := w.widths[w.sheet]
	for i, val := range values {
		if t, ok := val.(time.Time); ok {
			val = t.In(w.loc).Format(timeLayout)
		}

		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return fmt.Errorf("set %s!%s: %w", w.sheet, cell, err)
		}

		if i >= len(widths) {
			widths = append(widths, make([]int, i+1-len(widths))...)
		}
		if n := utf8.RuneCountInString(fmt.Sprint(val)); n > widths[i] {
			widths[i] = n
		}
	}
	w.widths[w.sheet] = widths
	return nil
}

// Save sizes every column to its longest value and writes the workbook to out.
func (w *xlsxWorkbook) Save(out io.Writer) error {
	for sheet, widths := range w.widths {
		for i, n := range widths {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return err
			}
			width := float64(min(max(n+2, minColWidth), maxColWidth))
			if err := w.file.SetColWidth(sheet, col, col, width); err != nil {
				return fmt.Errorf("size %s column %s: %w", sheet, col, err)
			}
		}
	}
	return w.file.Write(out)
}

func (w *xlsxWorkbook) Close() error {
	return w.file.Close()
}
