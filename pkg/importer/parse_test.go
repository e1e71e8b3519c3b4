package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"WhatsApp Number", "whatsapp_number"},
		{"whatsapp_number", "whatsapp_number"},
		{"Whatsapp Number", "whatsapp_number"},
		{"  WHATSAPP-NUMBER ", "whatsapp_number"},
		{"Owner/Broker", "owner_broker"},
		{"Transport Name", "transport_name"},
		{"transport_name", "transport_name"},
		{"Main  Service   City", "main_service_city"},
		{"Comment", "notes"},
		{"Remarks", "notes"},
		{"Unrelated Column", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveHeader(tt.header))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	xlsxBytes := []byte("PK\x03\x04rest")

	tests := []struct {
		name      string
		filename  string
		mediaType string
		data      []byte
		want      format
		wantErr   bool
	}{
		{"xlsx by extension", "a.xlsx", MediaTypeXLSX, xlsxBytes, formatXLSX, false},
		{"csv by extension", "a.csv", MediaTypeCSV, []byte("a,b"), formatCSV, false},
		{"csv by media type", "upload", MediaTypeCSV, []byte("a,b"), formatCSV, false},
		{"xls that is really xlsx", "a.xls", MediaTypeXLS, xlsxBytes, formatXLSX, false},
		{"xls ole header", "a.xls", MediaTypeXLS, []byte{0xD0, 0xCF, 0x11, 0xE0, 0}, formatXLS, false},
		{"no media type known extension", "a.csv", "", []byte("a,b"), formatCSV, false},
		{"media type with params", "a.csv", "text/csv; charset=utf-8", []byte("a,b"), formatCSV, false},
		{"disallowed media type", "a.csv", "application/pdf", []byte("a,b"), 0, true},
		{"unknown everything", "a.txt", "", []byte("a,b"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectFormat(tt.filename, tt.mediaType, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeyRowsDropsBlankRows(t *testing.T) {
	rows := keyRows(
		[]string{"Name", "Transport Name", "Ignored"},
		[][]string{
			{"John", "ABC", "x"},
			{"", " ", ""},
			{"Jane", "XYZ"},
		},
	)
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"name": "John", "transport_name": "ABC"}, rows[0])
	assert.Equal(t, "Jane", rows[1]["name"])
}

func TestReadXLSRejectsGarbage(t *testing.T) {
	_, _, err := readXLS([]byte{0xD0, 0xCF, 0x11, 0xE0, 1, 2, 3})
	var invalid *InvalidFileError
	assert.ErrorAs(t, err, &invalid)
}
