// Package importer loads vendor rows from uploaded spreadsheets.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"transport-vendor-api/internal/models"
)

// MaxBytes is the largest accepted upload.
const MaxBytes = 5 << 20

// ErrEmptyFile is returned when the file holds no data rows.
var ErrEmptyFile = errors.New("file is empty")

// InvalidFileError rejects an upload before any row is processed.
type InvalidFileError struct {
	Reason string
}

func (e *InvalidFileError) Error() string { return e.Reason }

// Store is the part of the vendor store the importer needs.
type Store interface {
	FindDuplicate(ctx context.Context, name, transportName string, excludeID int64) (int64, bool, error)
	Create(ctx context.Context, in models.VendorInput) (int64, error)
}

// Options controls a single import run.
type Options struct {
	DryRun bool
	Now    func() time.Time
	Logger zerolog.Logger
}

// RowError describes a rejected row. Row is the spreadsheet row number, the
// header being row 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Summary is the result of an import run.
type Summary struct {
	Total    int        `json:"total"`
	Imported int        `json:"imported"`
	IDs      []int64    `json:"ids"`
	Errors   []RowError `json:"errors"`
	DryRun   bool       `json:"dry_run,omitempty"`
}

// ImportVendors parses data and inserts one vendor per row. Rows are handled
// one at a time and a failing row never stops the run. The returned error is
// only set when the file itself is unusable.
func ImportVendors(ctx context.Context, st Store, data []byte, filename, mediaType string, opts Options) (Summary, error) {
	summary := Summary{IDs: []int64{}, Errors: []RowError{}, DryRun: opts.DryRun}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger

	if len(data) == 0 {
		return summary, ErrEmptyFile
	}
	if len(data) > MaxBytes {
		return summary, &InvalidFileError{Reason: fmt.Sprintf("file exceeds %d MB limit", MaxBytes>>20)}
	}

	f, err := detectFormat(filename, mediaType, data)
	if err != nil {
		return summary, err
	}
	rows, err := parse(f, data)
	if err != nil {
		return summary, err
	}
	if len(rows) == 0 {
		return summary, ErrEmptyFile
	}

	summary.Total = len(rows)
	seen := map[string]bool{}
	importedAt := opts.Now()

	for i, raw := range rows {
		rowNum := i + 2
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		in := mapRow(raw)
		if in.Name == "" || in.TransportName == "" {
			summary.addError(rowNum, "Name and Transport Name are required")
			continue
		}
		if err := in.Validate(); err != nil {
			summary.addError(rowNum, err.Error())
			continue
		}

		key := strings.ToLower(in.Name) + "\x00" + strings.ToLower(in.TransportName)
		if seen[key] {
			summary.addError(rowNum, (&models.DuplicateError{Name: in.Name, TransportName: in.TransportName}).Error())
			continue
		}
		existing, found, err := st.FindDuplicate(ctx, in.Name, in.TransportName, 0)
		if err != nil {
			summary.addError(rowNum, err.Error())
			continue
		}
		if found {
			summary.addError(rowNum, (&models.DuplicateError{ExistingID: existing, Name: in.Name, TransportName: in.TransportName}).Error())
			continue
		}

		if comment := raw["notes"]; comment != "" {
			if note, err := models.NewNote(comment, importedAt); err == nil {
				in.Notes = []models.Note{note}
			}
		}

		if opts.DryRun {
			seen[key] = true
			summary.Imported++
			continue
		}
		id, err := st.Create(ctx, in)
		if err != nil {
			log.Debug().Err(err).Int("row", rowNum).Msg("import row rejected by store")
			summary.addError(rowNum, err.Error())
			continue
		}
		seen[key] = true
		summary.Imported++
		summary.IDs = append(summary.IDs, id)
	}

	log.Info().
		Int("total", summary.Total).
		Int("imported", summary.Imported).
		Int("errors", len(summary.Errors)).
		Bool("dry_run", opts.DryRun).
		Msg("vendor import finished")
	return summary, nil
}

func (s *Summary) addError(row int, msg string) {
	s.Errors = append(s.Errors, RowError{Row: row, Message: fmt.Sprintf("row %d: %s", row, msg)})
}

// mapRow builds a normalized input from a row keyed by field name.
func mapRow(row map[string]string) models.VendorInput {
	opt := func(field string) *string {
		v := row[field]
		return &v
	}
	in := models.VendorInput{
		Name:             row["name"],
		TransportName:    row["transport_name"],
		VisitingCard:     opt("visiting_card"),
		OwnerBroker:      opt("owner_broker"),
		VendorState:      opt("vendor_state"),
		VendorCity:       opt("vendor_city"),
		WhatsappNumber:   opt("whatsapp_number"),
		AlternateNumber:  opt("alternate_number"),
		VehicleType:      opt("vehicle_type"),
		MainServiceState: opt("main_service_state"),
		MainServiceCity:  opt("main_service_city"),
		ReturnService:    strings.ToUpper(strings.TrimSpace(row["return_service"])),
		AnyAssociation:   strings.ToUpper(strings.TrimSpace(row["any_association"])),
		AssociationName:  opt("association_name"),
		Verification:     opt("verification"),
	}
	return in.Normalize()
}
