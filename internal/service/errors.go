package service

import (
	"errors"

	"github.com/jinzhu/gorm"
)

var ErrNotFound = errors.New("not found")

var (
	ErrDecode     = errors.New("decode")
	ErrValidation = errors.New("validation")
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrDuplicateRequest = errors.New("duplicate request")
)

// kindError is a sentinel with its own message that still matches its kind via errors.Is.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

var (
	ErrInvalidStatus     error = &kindError{ErrValidation, "invalid status"}
	ErrInvalidTransition error = &kindError{ErrValidation, "invalid status transition"}
	ErrOrderNotPayable   error = &kindError{ErrValidation, "order cannot be paid"}

	ErrOrderNotFound          error = &kindError{ErrNotFound, "order not found"}
	ErrProductNotFound        error = &kindError{ErrNotFound, "product not found"}
	ErrNotFoundOrUnauthorized error = &kindError{ErrNotFound, "order item not found or unauthorized"}
)

func isNotFound(err error) bool {
	return gorm.IsRecordNotFoundError(err) || errors.Is(err, gorm.ErrRecordNotFound)
}
