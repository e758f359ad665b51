// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/mo"
)

// Attribute keys of a Resource, as used by columns and the JSON shape.
const (
	KeyID         = "id"
	KeySourceName = "source_name"
	KeyCategory   = "category"
	KeyField      = "field"
	KeyLink       = "link"
)

// MinTextLength is the minimum length of every required text attribute.
const MinTextLength = 2

// ErrInvalidResource is matched by every error returned from Resource.Validate.
var ErrInvalidResource = errors.New("invalid resource")

// Resource is a single Aral record: a source with its category and field.
type Resource struct {
	ID         int64             `json:"id"`
	SourceName string            `json:"source_name"`
	Category   string            `json:"category"`
	Field      string            `json:"field"`
	Link       mo.Option[string] `json:"link,omitzero"`
}

// NewLink turns a possibly empty string into an optional link.
func NewLink(s string) mo.Option[string] {
	return mo.EmptyableToOption(strings.TrimSpace(s))
}

// ValidationError describes one attribute that failed validation.
type ValidationError struct {
	Attribute string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Attribute, e.Message)
}

// Is reports ErrInvalidResource so callers can match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidResource
}

// Validate checks the row shape. All failures are joined into one error.
func (r Resource) Validate() error {
	var errs []error
	if r.ID < 1 {
		errs = append(errs, &ValidationError{Attribute: KeyID, Message: "ID is required"})
	}
	return errors.Join(append(errs, r.textErrors()...)...)
}

// ValidateNew checks a resource that has not been assigned an ID yet.
func (r Resource) ValidateNew() error {
	return errors.Join(r.textErrors()...)
}

func (r Resource) textErrors() []error {
	var errs []error
	checkText := func(key, value, msg string) {
		if utf8.RuneCountInString(strings.TrimSpace(value)) < MinTextLength {
			errs = append(errs, &ValidationError{Attribute: key, Message: msg})
		}
	}
	checkText(KeySourceName, r.SourceName, "Source name is needed")
	checkText(KeyCategory, r.Category, "Category is needed")
	checkText(KeyField, r.Field, "Field is needed")
	return errs
}

// Value returns the string form of the attribute named by key.
// The second result is false for unknown keys and for an absent link.
func (r Resource) Value(key string) (string, bool) {
	switch key {
	case KeyID:
		return strconv.FormatInt(r.ID, 10), true
	case KeySourceName:
		return r.SourceName, true
	case KeyCategory:
		return r.Category, true
	case KeyField:
		return r.Field, true
	case KeyLink:
		return r.Link.Get()
	}
	return "", false
}
