package importer

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx/v3"
)

// TemplateFilename is the download name of the sample workbook.
const TemplateFilename = "vendors_import_sample.xlsx"

type templateColumn struct {
	header string
	width  float64
}

var templateColumns = []templateColumn{
	{"Name", 15},
	{"Transport Name", 25},
	{"Visiting Card", 20},
	{"Owner/Broker", 15},
	{"Vendor State", 15},
	{"Vendor City", 15},
	{"WhatsApp Number", 18},
	{"Alternate Number", 18},
	{"Vehicle Type", 15},
	{"Main Service State", 20},
	{"Main Service City", 20},
	{"Return Service", 15},
	{"Any Association", 18},
	{"Association Name", 25},
	{"Verification", 15},
}

var sampleVendors = [][]string{
	{"John Doe", "ABC Transport Services", "Visiting Card Details", "John Doe", "Tamil Nadu", "Chennai", "9876543210", "9876543211", "Truck", "Tamil Nadu", "Chennai", "Y", "Y", "Transport Association", "Verified"},
	{"Jane Smith", "XYZ Logistics", "", "Jane Smith", "Karnataka", "Bangalore", "9876543220", "", "Container", "Karnataka", "Bangalore", "N", "N", "", "Pending"},
	{"Raj Kumar", "Fast Track Transport", "Card Info", "Raj Kumar", "Maharashtra", "Mumbai", "9876543230", "9876543231", "Truck", "Maharashtra", "Mumbai", "Y", "Y", "Mumbai Transport Union", "Verified"},
	{"Priya Sharma", "Premium Cargo Movers", "Business Card", "Priya Sharma", "Delhi", "New Delhi", "9876543240", "9876543241", "Container", "Delhi", "New Delhi", "Y", "N", "", "Verified"},
	{"Amit Patel", "Swift Delivery Services", "", "Amit Patel", "Gujarat", "Ahmedabad", "9876543250", "", "Truck", "Gujarat", "Ahmedabad", "N", "Y", "Gujarat Transport Association", "Pending"},
}

// WriteTemplate writes a sample import workbook with one sheet named
// "Vendors" to w.
func WriteTemplate(w io.Writer) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Vendors")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for i, col := range templateColumns {
		header.AddCell().SetString(col.header)
		sheet.SetColWidth(i+1, i+1, col.width)
	}
	for _, vendor := range sampleVendors {
		row := sheet.AddRow()
		for _, v := range vendor {
			row.AddCell().SetString(v)
		}
	}

	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
