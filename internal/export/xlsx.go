package export

import (
	"github.com/dgallion1/docsight/internal/flatten"
	"github.com/dgallion1/docsight/internal/parser"
	"github.com/xuri/excelize/v2"
)

const (
	// FallbackTitle is cell A1 of the workbook returned when export fails.
	FallbackTitle = "Error Creating Excel File"

	maxCellChars = 32767
)

// XLSX writes a header row of the sorted keys of rs followed by one row per
// record, padding missing cells with "".
func (e *Exporter) XLSX(rs flatten.RowSet) []byte {
	out, err := guard(func() ([]byte, error) { return buildWorkbook(rs) })
	if err != nil {
		return e.xlsxFallback(err)
	}
	return out
}

// DocumentXLSX flattens an XML or JSON document and writes it as a workbook.
// A document that cannot be flattened yields the fallback workbook carrying
// the reason.
func (e *Exporter) DocumentXLSX(doc *parser.Document, opts flatten.Options) []byte {
	rs, err := flatten.Document(doc, opts)
	if err != nil {
		return e.xlsxFallback(err)
	}
	return e.XLSX(rs)
}

func buildWorkbook(rs flatten.RowSet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := rs.Headers()
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return nil, err
	}
	for i, cells := range rs.Cells(headers) {
		if err := writeRow(f, sheet, i+2, cells); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	if len(cells) == 0 {
		return nil
	}
	start, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return f.SetSheetRow(sheet, start, &row)
}

func (e *Exporter) xlsxFallback(cause error) []byte {
	e.fallback("xlsx", cause)

	msg := []rune(cause.Error())
	if len(msg) > maxCellChars {
		msg = msg[:maxCellChars]
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetCellValue(sheet, "A1", FallbackTitle); err != nil {
		e.log.Error("fallback workbook", "error", err)
	}
	if err := f.SetCellValue(sheet, "A2", string(msg)); err != nil {
		e.log.Error("fallback workbook", "error", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		e.log.Error("fallback workbook", "error", err)
		return nil
	}
	return buf.Bytes()
}
