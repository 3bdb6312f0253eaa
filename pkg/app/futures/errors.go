package futures

import "errors"

var (
	// Validation errors. Returned before any mutation; caller-correctable.
	ErrInvalidAsset  = errors.New("invalid asset")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidExpiry = errors.New("invalid expiry")

	ErrNotFound = errors.New("future not found")

	// ErrDuplicateID means the allocator and the store disagree. Fatal.
	ErrDuplicateID = errors.New("duplicate future id")

	ErrIDExhausted  = errors.New("future id space exhausted")
	ErrInvalidRange = errors.New("invalid expiry range")
)

// IsValidationError reports whether err is one of the validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidAsset) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidExpiry)
}
