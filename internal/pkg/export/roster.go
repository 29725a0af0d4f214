// Package export writes member and attendee rosters as spreadsheets or PDF documents.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts "xlsx", "excel" and "pdf". Empty input defaults to xlsx.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Roster is a titled table
type Roster struct {
	Title       string
	Columns     []string
	Rows        [][]string
	GeneratedAt time.Time
}

// Filename derives an attachment name from the title
func (r Roster) Filename(f Format) string {
	slug := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			return c
		case c >= 'A' && c <= 'Z':
			return c + ('a' - 'A')
		}
		return '-'
	}, r.Title)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "roster"
	}
	return slug + "." + string(f)
}

// Write renders the roster in format f
func Write(w io.Writer, r Roster, f Format) error {
	if f == FormatPDF {
		return WritePDF(w, r)
	}
	return WriteXLSX(w, r)
}

const sheetName = "Roster"

// WriteXLSX writes the roster as a single-sheet workbook with a bold header row
func WriteXLSX(w io.Writer, r Roster) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", r.Title); err != nil {
		return err
	}

	header := make([]interface{}, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A3", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if len(r.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(r.Columns), 3)
		if err := f.SetCellStyle(sheetName, "A3", last, bold); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", bold); err != nil {
		return err
	}

	for i, row := range r.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+4)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	for i := range r.Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, 24); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WritePDF writes the roster as an A4 table, repeating the header on every page
func WritePDF(w io.Writer, r Roster) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := pageWidth - left - right
	if len(r.Columns) > 0 {
		colWidth /= float64(len(r.Columns))
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range r.Columns {
			pdf.CellFormat(colWidth, 8, tr(c), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	if !r.GeneratedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 6, r.GeneratedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range r.Rows {
		if pdf.GetY()+7 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i := range r.Columns {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
