package intake

import (
	"errors"
	"fmt"

	scoring "github.com/okian/lifespan/internal/domain/scoring"
)

// Validation error kinds.
var (
	ErrMissing   = errors.New("field is required")
	ErrInvalid   = errors.New("field is invalid")
	ErrMalformed = errors.New("malformed body")
)

// MaxAge is the oldest accepted age.
const MaxAge = 150

// FieldError names the offending field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Validate checks that age is present and a number in [0, MaxAge]. Optional
// fields never fail validation; Coerce treats bad values as absent.
func Validate(v Values) error {
	raw := lookup(v, scoring.FieldAge)
	if raw == "" {
		return &FieldError{Field: string(scoring.FieldAge), Err: ErrMissing}
	}
	age, ok := number(raw)
	if !ok || age < 0 || age > MaxAge {
		return &FieldError{Field: string(scoring.FieldAge), Err: ErrInvalid}
	}
	return nil
}
