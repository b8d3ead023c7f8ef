package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field represents a positioned, typed input on the document assigned to one signer.
// Coordinates and dimensions are normalized fractions of page dimensions (0.0-1.0).
type Field struct {
	// ID is the unique identifier for the field.
	ID uuid.UUID
	// EnvelopeID is the envelope this field belongs to.
	EnvelopeID uuid.UUID
	// SignerID is the signer responsible for filling this field.
	SignerID uuid.UUID
	// Type is the field kind (signature, initials, date, text, checkbox, name, email).
	Type FieldType
	// Page is the 0-based page index the field is placed on.
	Page int
	// X, Y are the top-left position as fractions of page width/height.
	X float64
	Y float64
	// Width, Height are the field dimensions as fractions of page width/height.
	Width  float64
	Height float64
	// Required indicates the signer cannot complete signing while this field is empty.
	Required bool
	// Label is an optional display label.
	Label string
	// Placeholder is an optional hint text shown before the field is filled.
	Placeholder string
	// Value is the filled value, nil until the signer provides one.
	Value *string
	// FilledAt records when the value was written.
	FilledAt *time.Time
	// CreatedAt is the UTC creation timestamp.
	CreatedAt time.Time
}

// ValueFills reports whether the given raw value fills this field. Checkbox
// fields accept only the canonical true marker; every other type treats
// empty or whitespace-only values as unfilled.
func (f *Field) ValueFills(value string) bool {
	if f.Type == FieldTypeCheckbox {
		return value == CheckboxTrueMarker
	}
	return strings.TrimSpace(value) != ""
}

// Filled reports whether the field currently holds a filling value.
func (f *Field) Filled() bool {
	if f.Value == nil {
		return false
	}
	return f.ValueFills(*f.Value)
}
