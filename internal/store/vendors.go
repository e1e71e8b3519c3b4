package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"transport-vendor-api/internal/models"
)

const vendorColumns = `id, COALESCE(name, ''), COALESCE(transport_name, ''),
	visiting_card, owner_broker, vendor_state, vendor_city,
	whatsapp_number, alternate_number, vehicle_type,
	main_service_state, main_service_city,
	COALESCE(return_service, 'N'), COALESCE(any_association, 'N'),
	association_name, verification,
	COALESCE(notes::text, ''), created_at, updated_at`

func scanVendor(row pgx.Row) (*models.Vendor, error) {
	var (
		v     models.Vendor
		notes string
	)
	err := row.Scan(&v.ID, &v.Name, &v.TransportName,
		&v.VisitingCard, &v.OwnerBroker, &v.VendorState, &v.VendorCity,
		&v.WhatsappNumber, &v.AlternateNumber, &v.VehicleType,
		&v.MainServiceState, &v.MainServiceCity,
		&v.ReturnService, &v.AnyAssociation,
		&v.AssociationName, &v.Verification,
		&notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.ReturnService = models.NormalizeFlag(strings.TrimSpace(v.ReturnService))
	v.AnyAssociation = models.NormalizeFlag(strings.TrimSpace(v.AnyAssociation))
	v.Notes = models.DecodeNotes(notes, legacyStamp(&v))
	return &v, nil
}

// legacyStamp is the timestamp given to notes stored as plain text.
func legacyStamp(v *models.Vendor) time.Time {
	if !v.UpdatedAt.IsZero() {
		return v.UpdatedAt
	}
	return v.CreatedAt
}

// List returns vendors newest first.
func (s *Store) List(ctx context.Context, f models.ListFilter) ([]models.Vendor, error) {
	clauses := []string{}
	args := []any{}
	arg := 1

	if q := strings.TrimSpace(f.Query); q != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%[1]d OR transport_name ILIKE $%[1]d OR vendor_city ILIKE $%[1]d OR main_service_city ILIKE $%[1]d)", arg))
		args = append(args, "%"+q+"%")
		arg++
	}

	whereClause := ""
	if len(clauses) > 0 {
		whereClause = " WHERE " + strings.Join(clauses, " AND ")
	}

	sqlStr := "SELECT " + vendorColumns + " FROM vendors" + whereClause + " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		sqlStr += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	if f.Offset > 0 {
		sqlStr += fmt.Sprintf(" OFFSET %d", f.Offset)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("list vendors: %w", err))
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list vendors: %w", err))
	}
	return vendors, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*models.Vendor, error) {
	v, err := scanVendor(s.pool.QueryRow(ctx, "SELECT "+vendorColumns+" FROM vendors WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("get vendor %d: %w", id, err))
	}
	return v, nil
}

// FindDuplicate looks for another vendor with the same name and transport
// name, ignoring case. excludeID skips the vendor being updated; pass 0 to
// consider every row.
func (s *Store) FindDuplicate(ctx context.Context, name, transportName string, excludeID int64) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM vendors
		WHERE LOWER(name) = LOWER($1) AND LOWER(transport_name) = LOWER($2) AND id <> $3
		ORDER BY id LIMIT 1`,
		strings.TrimSpace(name), strings.TrimSpace(transportName), excludeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, classify(fmt.Errorf("check duplicate vendor: %w", err))
	}
	return id, true, nil
}

func (s *Store) duplicateError(ctx context.Context, in models.VendorInput, excludeID int64) error {
	id, found, err := s.FindDuplicate(ctx, in.Name, in.TransportName, excludeID)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return &models.DuplicateError{ExistingID: id, Name: in.Name, TransportName: in.TransportName}
}

// Create inserts a vendor and returns its id. The duplicate check and the
// insert are separate statements; a racing insert is caught by the unique
// index when the migrator managed to create it.
func (s *Store) Create(ctx context.Context, in models.VendorInput) (int64, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return 0, err
	}
	if err := s.duplicateError(ctx, in, 0); err != nil {
		return 0, err
	}

	notes, err := models.EncodeNotes(in.Notes)
	if err != nil {
		return 0, fmt.Errorf("encode notes: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO vendors (
			name, transport_name, visiting_card, owner_broker, vendor_state, vendor_city,
			whatsapp_number, alternate_number, vehicle_type, main_service_state,
			main_service_city, return_service, any_association, association_name,
			verification, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16::jsonb)
		RETURNING id`,
		in.Name, in.TransportName, in.VisitingCard, in.OwnerBroker, in.VendorState, in.VendorCity,
		in.WhatsappNumber, in.AlternateNumber, in.VehicleType, in.MainServiceState,
		in.MainServiceCity, in.ReturnService, in.AnyAssociation, in.AssociationName,
		in.Verification, string(notes)).Scan(&id)
	if isUniqueViolation(err) {
		if derr := s.duplicateError(ctx, in, 0); derr != nil {
			return 0, derr
		}
		return 0, &models.DuplicateError{Name: in.Name, TransportName: in.TransportName}
	}
	if err != nil {
		return 0, classify(fmt.Errorf("insert vendor: %w", err))
	}

	s.log.Debug().Int64("vendor_id", id).Msg("vendor created")
	return id, nil
}

// Update replaces the core fields of a vendor. Notes are never touched here.
func (s *Store) Update(ctx context.Context, id int64, in models.VendorInput) (*models.Vendor, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)", id).Scan(&exists); err != nil {
		return nil, classify(fmt.Errorf("check vendor %d: %w", id, err))
	}
	if !exists {
		return nil, models.ErrNotFound
	}
	if err := s.duplicateError(ctx, in, id); err != nil {
		return nil, err
	}

	v, err := scanVendor(s.pool.QueryRow(ctx, `
		UPDATE vendors SET
			name = $1, transport_name = $2, visiting_card = $3, owner_broker = $4,
			vendor_state = $5, vendor_city = $6, whatsapp_number = $7, alternate_number = $8,
			vehicle_type = $9, main_service_state = $10, main_service_city = $11,
			return_service = $12, any_association = $13, association_name = $14,
			verification = $15, updated_at = now()
		WHERE id = $16
		RETURNING `+vendorColumns,
		in.Name, in.TransportName, in.VisitingCard, in.OwnerBroker,
		in.VendorState, in.VendorCity, in.WhatsappNumber, in.AlternateNumber,
		in.VehicleType, in.MainServiceState, in.MainServiceCity,
		in.ReturnService, in.AnyAssociation, in.AssociationName,
		in.Verification, id))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, models.ErrNotFound
	case isUniqueViolation(err):
		if derr := s.duplicateError(ctx, in, id); derr != nil {
			return nil, derr
		}
		return nil, &models.DuplicateError{Name: in.Name, TransportName: in.TransportName}
	case err != nil:
		return nil, classify(fmt.Errorf("update vendor %d: %w", id, err))
	}
	return v, nil
}

// Delete removes a vendor permanently.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM vendors WHERE id = $1", id)
	if err != nil {
		return classify(fmt.Errorf("delete vendor %d: %w", id, err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
