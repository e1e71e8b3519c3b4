package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	FlagYes = "Y"
	FlagNo  = "N"
)

var validate = validator.New()

// Vendor is one transport vendor row.
type Vendor struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	TransportName    string    `json:"transport_name"`
	VisitingCard     *string   `json:"visiting_card"`
	OwnerBroker      *string   `json:"owner_broker"`
	VendorState      *string   `json:"vendor_state"`
	VendorCity       *string   `json:"vendor_city"`
	WhatsappNumber   *string   `json:"whatsapp_number"`
	AlternateNumber  *string   `json:"alternate_number"`
	VehicleType      *string   `json:"vehicle_type"`
	MainServiceState *string   `json:"main_service_state"`
	MainServiceCity  *string   `json:"main_service_city"`
	ReturnService    string    `json:"return_service"`
	AnyAssociation   string    `json:"any_association"`
	AssociationName  *string   `json:"association_name"`
	Verification     *string   `json:"verification"`
	Notes            []Note    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VendorInput carries the writable core fields of a vendor. Notes can only be
// seeded by the importer; the JSON API never reads them from a request body.
type VendorInput struct {
	Name             string  `json:"name" validate:"required,max=255"`
	TransportName    string  `json:"transport_name" validate:"required,max=255"`
	VisitingCard     *string `json:"visiting_card" validate:"omitempty,max=255"`
	OwnerBroker      *string `json:"owner_broker" validate:"omitempty,max=255"`
	VendorState      *string `json:"vendor_state" validate:"omitempty,max=255"`
	VendorCity       *string `json:"vendor_city" validate:"omitempty,max=255"`
	WhatsappNumber   *string `json:"whatsapp_number" validate:"omitempty,max=20"`
	AlternateNumber  *string `json:"alternate_number" validate:"omitempty,max=20"`
	VehicleType      *string `json:"vehicle_type" validate:"omitempty,max=255"`
	MainServiceState *string `json:"main_service_state" validate:"omitempty,max=255"`
	MainServiceCity  *string `json:"main_service_city" validate:"omitempty,max=255"`
	ReturnService    string  `json:"return_service"`
	AnyAssociation   string  `json:"any_association"`
	AssociationName  *string `json:"association_name" validate:"omitempty,max=255"`
	Verification     *string `json:"verification" validate:"omitempty,max=255"`

	Notes []Note `json:"-"`
}

// Normalize trims the required fields, turns blank optional fields into nil
// and collapses the Y/N flags.
func (in VendorInput) Normalize() VendorInput {
	in.Name = strings.TrimSpace(in.Name)
	in.TransportName = strings.TrimSpace(in.TransportName)
	for _, p := range in.optional() {
		*p = NullIfEmpty(*p)
	}
	in.ReturnService = NormalizeFlag(in.ReturnService)
	in.AnyAssociation = NormalizeFlag(in.AnyAssociation)
	if in.Notes == nil {
		in.Notes = []Note{}
	}
	return in
}

// Validate reports the first failing field as a *ValidationError.
func (in VendorInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := jsonFieldName(fe.StructField())
	switch fe.Tag() {
	case "required":
		if field == "name" || field == "transport_name" {
			return &ValidationError{Field: field, Message: "Name and Transport Name are required"}
		}
		return &ValidationError{Field: field, Message: field + " is required"}
	case "max":
		return &ValidationError{Field: field, Message: field + " must be at most " + fe.Param() + " characters"}
	default:
		return &ValidationError{Field: field, Message: field + " is invalid"}
	}
}

func (in *VendorInput) optional() []**string {
	return []**string{
		&in.VisitingCard, &in.OwnerBroker, &in.VendorState, &in.VendorCity,
		&in.WhatsappNumber, &in.AlternateNumber, &in.VehicleType,
		&in.MainServiceState, &in.MainServiceCity, &in.AssociationName,
		&in.Verification,
	}
}

var jsonNames = map[string]string{
	"Name":             "name",
	"TransportName":    "transport_name",
	"VisitingCard":     "visiting_card",
	"OwnerBroker":      "owner_broker",
	"VendorState":      "vendor_state",
	"VendorCity":       "vendor_city",
	"WhatsappNumber":   "whatsapp_number",
	"AlternateNumber":  "alternate_number",
	"VehicleType":      "vehicle_type",
	"MainServiceState": "main_service_state",
	"MainServiceCity":  "main_service_city",
	"AssociationName":  "association_name",
	"Verification":     "verification",
}

func jsonFieldName(structField string) string {
	if n, ok := jsonNames[structField]; ok {
		return n
	}
	return strings.ToLower(structField)
}

// NormalizeFlag returns v when it is exactly "Y" or "N", otherwise "N".
func NormalizeFlag(v string) string {
	if v == FlagYes || v == FlagNo {
		return v
	}
	return FlagNo
}

// NullIfEmpty maps nil and whitespace-only strings to nil and trims the rest.
func NullIfEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// ListFilter narrows a vendor listing. The zero value lists everything.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}
