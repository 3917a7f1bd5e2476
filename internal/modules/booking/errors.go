package booking

import "errors"

var (
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("booking conflicts with an existing booking")
	ErrNotFound          = errors.New("booking not found")
	ErrEquipmentNotFound = errors.New("equipment not found")
	ErrForbidden         = errors.New("not allowed to act on this booking")
	ErrBusy              = errors.New("slot is busy, try again")
)
