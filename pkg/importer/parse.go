package importer

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
	"github.com/tealeg/xlsx/v3"
)

type format int

const (
	formatXLSX format = iota + 1
	formatXLS
	formatCSV
)

const (
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MediaTypeXLS  = "application/vnd.ms-excel"
	MediaTypeCSV  = "text/csv"
)

var allowedMediaTypes = map[string]format{
	MediaTypeXLSX: formatXLSX,
	MediaTypeXLS:  formatXLS,
	MediaTypeCSV:  formatCSV,
}

var extensions = map[string]format{
	".xlsx": formatXLSX,
	".xls":  formatXLS,
	".csv":  formatCSV,
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// detectFormat checks the declared media type against the allow-list and
// picks a parser from the extension, then the media type. An empty media type
// is accepted when the extension is known.
func detectFormat(filename, mediaType string, data []byte) (format, error) {
	byExt, extOK := extensions[strings.ToLower(filepath.Ext(filename))]

	var byType format
	if mediaType != "" {
		mt, _, err := mime.ParseMediaType(mediaType)
		if err != nil {
			return 0, &InvalidFileError{Reason: "Invalid file type. Please upload Excel or CSV files only."}
		}
		var ok bool
		if byType, ok = allowedMediaTypes[strings.ToLower(mt)]; !ok {
			return 0, &InvalidFileError{Reason: "Invalid file type. Please upload Excel or CSV files only."}
		}
	}

	f := byType
	if extOK {
		f = byExt
	}
	if f == 0 {
		return 0, &InvalidFileError{Reason: "Invalid file type. Please upload Excel or CSV files only."}
	}

	// spreadsheets are often saved with the wrong extension
	switch {
	case bytes.HasPrefix(data, zipMagic):
		f = formatXLSX
	case bytes.HasPrefix(data, oleMagic):
		f = formatXLS
	}
	return f, nil
}

// parse returns the data rows of the first sheet keyed by field name. Blank
// rows are dropped.
func parse(f format, data []byte) ([]map[string]string, error) {
	var (
		header []string
		cells  [][]string
		err    error
	)
	switch f {
	case formatXLSX:
		header, cells, err = readXLSX(data)
	case formatXLS:
		header, cells, err = readXLS(data)
	case formatCSV:
		return readCSV(data)
	default:
		err = fmt.Errorf("unsupported format")
	}
	if err != nil {
		return nil, err
	}
	return keyRows(header, cells), nil
}

func readXLSX(data []byte) ([]string, [][]string, error) {
	wb, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, &InvalidFileError{Reason: "could not read Excel file: " + err.Error()}
	}
	if len(wb.Sheets) == 0 {
		return nil, nil, nil
	}
	sheet := wb.Sheets[0]

	var rows [][]string
	for r := 0; r < sheet.MaxRow; r++ {
		row := make([]string, sheet.MaxCol)
		for c := 0; c < sheet.MaxCol; c++ {
			cell, err := sheet.Cell(r, c)
			if err != nil {
				return nil, nil, &InvalidFileError{Reason: fmt.Sprintf("could not read cell %d:%d: %v", r+1, c+1, err)}
			}
			row[c] = cellText(cell)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

// cellText is the displayed value of a cell, except that General-format
// numbers keep all their digits instead of switching to scientific notation.
func cellText(cell *xlsx.Cell) string {
	s := cell.String()
	if cell.Type() != xlsx.CellTypeNumeric || !strings.ContainsAny(s, "Ee") {
		return s
	}
	f, err := cell.Float()
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func readXLS(data []byte) (header []string, rows [][]string, err error) {
	// the xls reader panics on some malformed workbooks
	defer func() {
		if r := recover(); r != nil {
			err = &InvalidFileError{Reason: fmt.Sprintf("could not read Excel file: %v", r)}
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, &InvalidFileError{Reason: "could not read Excel file: " + err.Error()}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, nil
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cols := make([]string, row.LastCol())
		for j := range cols {
			cols[j] = row.Col(j)
		}
		if header == nil {
			header = cols
			continue
		}
		rows = append(rows, cols)
	}
	return header, rows, nil
}

func readCSV(data []byte) ([]map[string]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	records, err := gocsv.CSVToMaps(bytes.NewReader(data))
	if err != nil {
		return nil, &InvalidFileError{Reason: "could not read CSV file: " + err.Error()}
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		row := map[string]string{}
		for h, v := range rec {
			field := ResolveHeader(h)
			if field == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				row[field] = v
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func keyRows(header []string, cells [][]string) []map[string]string {
	fields := make([]string, len(header))
	for i, h := range header {
		fields[i] = ResolveHeader(h)
	}

	rows := make([]map[string]string, 0, len(cells))
	for _, cols := range cells {
		row := map[string]string{}
		for i, v := range cols {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				row[fields[i]] = v
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}
