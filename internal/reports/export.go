package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", errors.Wrapf(ErrUnknownFormat, "%q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename builds e.g. rekap-absensi_2024-03-01_2024-03-31.xlsx
func (f Format) Filename(r Report) string {
	return fmt.Sprintf("rekap-absensi_%s_%s.%s", r.Start, r.End, f)
}

var header = []string{"No", "NIS", "Nama", "Kelas", "Hadir", "Izin", "Sakit", "Alpha", "Pending", "Terlambat", "Total", "Kehadiran (%)"}

func record(no int, r Row) []string {
	return []string{
		strconv.Itoa(no), r.NIS, r.FullName, r.ClassName,
		strconv.Itoa(r.Hadir), strconv.Itoa(r.Izin), strconv.Itoa(r.Sakit), strconv.Itoa(r.Alpha),
		strconv.Itoa(r.Pending), strconv.Itoa(r.Late), strconv.Itoa(r.Total),
		strconv.FormatFloat(r.Rate, 'f', 1, 64),
	}
}

func totalsRecord(r Row) []string {
	rec := record(0, r)
	rec[0], rec[1], rec[2], rec[3] = "", "", "TOTAL", ""
	return rec
}

// Write renders r in format f.
func Write(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, r)
	case FormatXLSX:
		return WriteXLSX(w, r)
	case FormatPDF:
		return WritePDF(w, r)
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", f)
}

func WriteCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, row := range r.Rows {
		if err := cw.Write(record(i+1, row)); err != nil {
			return err
		}
	}
	if err := cw.Write(totalsRecord(r.Totals)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

const sheetName = "Rekap"

func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	f.SetCellValue(sheetName, "A1", r.SchoolName)
	f.SetCellValue(sheetName, "A2", r.Title)
	f.SetCellValue(sheetName, "A3", fmt.Sprintf("Periode: %s s/d %s", r.Start, r.End))
	if r.ClassName != "" {
		f.SetCellValue(sheetName, "A4", "Kelas: "+r.ClassName)
	}

	const firstRow = 6
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, firstRow)
		f.SetCellValue(sheetName, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(header), firstRow)
		f.SetCellStyle(sheetName, "A"+strconv.Itoa(firstRow), last, bold)
	}

	rowNum := firstRow + 1
	writeRow := func(values []any) {
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(sheetName, cell, v)
		}
		rowNum++
	}
	for i, row := range r.Rows {
		writeRow([]any{i + 1, row.NIS, row.FullName, row.ClassName, row.Hadir, row.Izin, row.Sakit, row.Alpha, row.Pending, row.Late, row.Total, row.Rate})
	}
	t := r.Totals
	writeRow([]any{"", "", "TOTAL", "", t.Hadir, t.Izin, t.Sakit, t.Alpha, t.Pending, t.Late, t.Total, t.Rate})

	f.SetColWidth(sheetName, "C", "C", 32)
	_, err = f.WriteTo(w)
	return err
}

var pdfWidths = []float64{10, 24, 58, 24, 16, 14, 14, 14, 18, 22, 16, 27}

// pdfCompress is switched off by tests that inspect the page text.
var pdfCompress = true

// WritePDF renders r with the core Arial font, so text is converted from
// UTF-8 to cp1252 first.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(pdfCompress)
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(r.SchoolName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, tr(r.Title), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	period := fmt.Sprintf("Periode: %s s/d %s", r.Start, r.End)
	if r.ClassName != "" {
		period += "   Kelas: " + r.ClassName
	}
	pdf.CellFormat(0, 6, tr(period), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(pdfWidths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, row := range r.Rows {
		for j, v := range record(i+1, row) {
			align := "C"
			if j == 2 {
				align = "L"
			}
			pdf.CellFormat(pdfWidths[j], 6, tr(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 9)
	for j, v := range totalsRecord(r.Totals) {
		pdf.CellFormat(pdfWidths[j], 6, tr(v), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, tr("Dicetak: "+r.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "R", false, 0, "")

	return pdf.Output(w)
}
