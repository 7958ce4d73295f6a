// Package extract turns an uploaded statement file into plain text for the bank parsers.
//
// The format is sniffed from the leading bytes: PDF and XLSX are converted, anything else is treated
// as text. Text that is not valid UTF-8 is assumed to be Windows-1250, the code page Romanian bank
// exports fall back to.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Format is the detected container of a statement file.
type Format string

const (
	FormatText Format = "text"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

var (
	pdfMagic  = []byte("%PDF-")
	zipMagic  = []byte("PK\x03\x04")
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	cellDelim = ";"
)

// Detect sniffs the file format from its first bytes.
func Detect(b []byte) Format {
	switch {
	case bytes.HasPrefix(b, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(b, zipMagic):
		return FormatXLSX
	default:
		return FormatText
	}
}

// Text converts file bytes into newline-separated statement text.
func Text(b []byte) (string, error) {
	switch Detect(b) {
	case FormatPDF:
		return pdfText(b)
	case FormatXLSX:
		return xlsxText(b)
	default:
		return Decode(b)
	}
}

// Decode returns b as a UTF-8 string, dropping a byte order mark.
func Decode(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), nil
	}
	out, err := charmap.Windows1250.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(err, "decode windows-1250")
	}
	return string(out), nil
}

func pdfText(b []byte) (text string, err error) {
	// The pdf reader panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}

	var buf strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", errors.Wrapf(err, "read pdf page %d", i)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				words = append(words, t.S)
			}
			buf.WriteString(strings.Join(words, " "))
			buf.WriteString("\n")
		}
	}
	return buf.String(), nil
}

func xlsxText(b []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return "", errors.Wrap(err, "open xlsx")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", errors.Wrapf(err, "read sheet %s", sheets[0])
	}

	// GetRows drops trailing empty cells; tabular rows are padded back to the sheet width.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var buf strings.Builder
	for _, row := range rows {
		if len(row) > 1 && len(row) < width {
			row = append(row, make([]string, width-len(row))...)
		}
		buf.WriteString(strings.Join(row, cellDelim))
		buf.WriteString("\n")
	}
	return buf.String(), nil
}
