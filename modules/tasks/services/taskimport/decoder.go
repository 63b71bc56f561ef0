package taskimport

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// Decoder turns an uploaded file into raw sheets, header row first.
type Decoder interface {
	Decode(r io.Reader) ([]RawSheet, error)
}

type ExcelDecoder struct{}

func (ExcelDecoder) Decode(r io.Reader) ([]RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	sheets := make([]RawSheet, 0, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, errors.Wrapf(err, "read sheet %q", name)
		}
		sheets = append(sheets, RawSheet{Name: name, Rows: toCells(rows)})
	}
	return sheets, nil
}

// CSVDecoder reads a single sheet named SheetName. Both comma and semicolon
// separated files are accepted.
type CSVDecoder struct {
	SheetName string
}

func (d CSVDecoder) Decode(r io.Reader) ([]RawSheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = detectSeparator(data)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	name := strings.TrimSpace(d.SheetName)
	if name == "" {
		name = "Sheet1"
	}
	return []RawSheet{{Name: name, Rows: toCells(records)}}, nil
}

func detectSeparator(data []byte) rune {
	first, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

// DecodeUpload sniffs the content type of data and picks the matching
// decoder. For CSV uploads the file name (without extension) names the sheet.
func DecodeUpload(data []byte, filename string) ([]RawSheet, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
		mt.Is("application/zip") && strings.EqualFold(filepath.Ext(filename), ".xlsx"):
		return ExcelDecoder{}.Decode(bytes.NewReader(data))
	case mt.Is("text/csv"), mt.Is("text/plain"):
		var name string
		if filename != "" {
			base := filepath.Base(filename)
			name = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return CSVDecoder{SheetName: name}.Decode(bytes.NewReader(data))
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", mt.String())
	}
}

func toCells(rows [][]string) [][]Cell {
	out := make([][]Cell, len(rows))
	for i, row := range rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = v
		}
		out[i] = cells
	}
	return out
}
