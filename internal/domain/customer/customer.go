package customer

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/custdesk/backend/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// Field limits of a customer record
const (
	TaxIDLength       = 10
	MaxFullNameLength = 140
	MaxEmailLength    = 255
	MaxMobileLength   = 10
	PostcodeLength    = 6
	MaxAddresses      = 10
)

// Top-level record fields accepted by SetField
const (
	FieldTaxID        = "tax_id"
	FieldFullName     = "full_name"
	FieldEmail        = "email"
	FieldMobileNumber = "mobile_number"
)

// Address fields accepted by SetAddressField
const (
	FieldAddressLine1 = "address_line1"
	FieldAddressLine2 = "address_line2"
	FieldPostcode     = "postcode"
	FieldState        = "state"
	FieldCity         = "city"
)

// Address is one postal address of a customer
type Address struct {
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	Postcode     string `json:"postcode" validate:"required,len=6"`
	State        string `json:"state" validate:"required"`
	City         string `json:"city" validate:"required"`
}

// Record is a customer as held by the store and edited by the form.
// TaxID is the key the store operates on.
type Record struct {
	TaxID        string    `json:"tax_id" validate:"required,len=10"`
	FullName     string    `json:"full_name" validate:"required,max=140"`
	Email        string    `json:"email" validate:"required,max=255"`
	MobileNumber string    `json:"mobile_number" validate:"required,max=10"`
	Addresses    []Address `json:"addresses" validate:"min=1,max=10,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewRecord returns a blank record with one empty address
func NewRecord() Record {
	return Record{
		Addresses: []Address{{}},
	}
}

// Clone returns a deep copy that shares no memory with r
func (r Record) Clone() Record {
	out := r
	out.Addresses = make([]Address, len(r.Addresses))
	copy(out.Addresses, r.Addresses)
	return out
}

// SetField updates a top-level scalar field
func (r *Record) SetField(name, value string) error {
	switch name {
	case FieldTaxID:
		if err := checkMaxLength(name, value, TaxIDLength); err != nil {
			return err
		}
		r.TaxID = value
	case FieldFullName:
		if err := checkMaxLength(name, value, MaxFullNameLength); err != nil {
			return err
		}
		r.FullName = value
	case FieldEmail:
		if err := checkMaxLength(name, value, MaxEmailLength); err != nil {
			return err
		}
		r.Email = value
	case FieldMobileNumber:
		if err := checkMaxLength(name, value, MaxMobileLength); err != nil {
			return err
		}
		r.MobileNumber = value
	default:
		return shared.NewFieldError("INVALID_FIELD", name, fmt.Sprintf("Unknown customer field %q", name))
	}
	return nil
}

// SetAddressField updates a field of Addresses[index]
func (r *Record) SetAddressField(index int, name, value string) error {
	if index < 0 || index >= len(r.Addresses) {
		return shared.NewFieldError("INVALID_INDEX", "addresses",
			fmt.Sprintf("Address index %d out of range (have %d)", index, len(r.Addresses)))
	}

	addr := &r.Addresses[index]
	switch name {
	case FieldAddressLine1:
		addr.AddressLine1 = value
	case FieldAddressLine2:
		addr.AddressLine2 = value
	case FieldPostcode:
		if err := checkMaxLength(name, value, PostcodeLength); err != nil {
			return err
		}
		addr.Postcode = value
	case FieldState:
		addr.State = value
	case FieldCity:
		addr.City = value
	default:
		return shared.NewFieldError("INVALID_FIELD", name, fmt.Sprintf("Unknown address field %q", name))
	}
	return nil
}

// AddAddress appends a blank address unless the record already holds MaxAddresses.
// Returns false when nothing was added.
func (r *Record) AddAddress() bool {
	if len(r.Addresses) >= MaxAddresses {
		return false
	}
	r.Addresses = append(r.Addresses, Address{})
	return true
}

// Validate checks required fields and lengths before the record is saved.
// The returned error is a validator.ValidationErrors when fields fail.
func (r Record) Validate() error {
	return validate.Struct(r)
}

// TaxIDComplete reports whether v has the length that triggers verification
func TaxIDComplete(v string) bool {
	return utf8.RuneCountInString(v) == TaxIDLength
}

// PostcodeComplete reports whether v has the length that triggers a lookup
func PostcodeComplete(v string) bool {
	return utf8.RuneCountInString(v) == PostcodeLength
}

func checkMaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return shared.NewFieldError("INVALID_LENGTH", field,
			fmt.Sprintf("%s cannot exceed %d characters", field, max))
	}
	return nil
}
