package validators

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/domain"
)

const (
	maxEmailLen    = 254
	maxFullNameLen = 200
	maxPhoneLen    = 32
	maxNoteLen     = 2000
)

type CustomerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Notes    string `json:"notes"`
}

type InteractionRequest struct {
	Kind string `json:"kind"`
	Note string `json:"note"`
}

// ValidateCustomer returns every field problem at once, in field order.
func ValidateCustomer(r CustomerRequest) []apierr.FieldError {
	var errs []apierr.FieldError

	email := strings.TrimSpace(r.Email)
	switch {
	case email == "":
		errs = append(errs, apierr.FieldError{Field: "email", Message: "Email is required"})
	case utf8.RuneCountInString(email) > maxEmailLen:
		errs = append(errs, apierr.FieldError{Field: "email", Message: "Email is too long"})
	case !validEmail(email):
		errs = append(errs, apierr.FieldError{Field: "email", Message: "Email is invalid"})
	}

	name := strings.TrimSpace(r.FullName)
	switch {
	case name == "":
		errs = append(errs, apierr.FieldError{Field: "full_name", Message: "Full name is required"})
	case utf8.RuneCountInString(name) > maxFullNameLen:
		errs = append(errs, apierr.FieldError{Field: "full_name", Message: "Full name is too long"})
	}

	if utf8.RuneCountInString(strings.TrimSpace(r.Phone)) > maxPhoneLen {
		errs = append(errs, apierr.FieldError{Field: "phone", Message: "Phone is too long"})
	}
	if utf8.RuneCountInString(r.Notes) > maxNoteLen {
		errs = append(errs, apierr.FieldError{Field: "notes", Message: "Notes are too long"})
	}

	return errs
}

func ValidateInteraction(r InteractionRequest) []apierr.FieldError {
	var errs []apierr.FieldError

	switch domain.InteractionKind(r.Kind) {
	case domain.InteractionVisit, domain.InteractionCall, domain.InteractionPurchase, domain.InteractionRepair:
	case "":
		errs = append(errs, apierr.FieldError{Field: "kind", Message: "Kind is required"})
	default:
		errs = append(errs, apierr.FieldError{Field: "kind", Message: "Kind is invalid"})
	}

	if utf8.RuneCountInString(r.Note) > maxNoteLen {
		errs = append(errs, apierr.FieldError{Field: "note", Message: "Note is too long"})
	}

	return errs
}

// validEmail accepts a bare address only, no display name.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
