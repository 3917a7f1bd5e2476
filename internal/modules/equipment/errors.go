package equipment

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("equipment not found")
	ErrForbidden  = errors.New("only teachers can manage equipment")
	ErrInUse      = errors.New("equipment has bookings")
)
