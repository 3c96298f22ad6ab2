package core

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrProfileNotFound = errors.New("profile not found")
	ErrConflict        = errors.New("already exists")
	ErrNoData          = errors.New("no transaction data")

	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidYear        = errors.New("invalid year")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidGroup       = errors.New("invalid budget group")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidID          = errors.New("invalid id")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidDescription = errors.New("description too long")
	ErrEmptyLineName      = errors.New("empty budget line name")
	ErrEmptyProfile       = errors.New("empty profile id")
	ErrEmptyBatch         = errors.New("no transactions to import")
)

// IsValidation reports whether err was caused by bad input rather than
// by the store or a collaborator.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidDate, ErrInvalidMonth, ErrInvalidYear, ErrInvalidAmount,
		ErrInvalidType, ErrInvalidGroup, ErrInvalidField, ErrInvalidID, ErrEmptyDescription,
		ErrInvalidDescription,
		ErrEmptyLineName, ErrEmptyProfile, ErrEmptyBatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
