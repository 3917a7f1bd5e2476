package booking

import (
	"context"

	"labbooking/internal/domain"
)

// BookingRepository persists bookings. CreateIfFree and UpdateIfFree run the
// overlap check and the write as one unit.
type BookingRepository interface {
	CreateIfFree(ctx context.Context, b *domain.Booking) error
	UpdateIfFree(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.BookingDetails, error)
	ListAll(ctx context.Context) ([]domain.BookingDetails, error)
}

// ChangeNotifier is told about every committed create, edit and cancel.
type ChangeNotifier interface {
	NotifyBookingChanged(ctx context.Context, change Change)
}

type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeEdited    ChangeKind = "edited"
	ChangeCancelled ChangeKind = "cancelled"
)

type Change struct {
	Kind    ChangeKind
	Booking domain.Booking
	// Previous is set for edits and holds the values before the change.
	Previous *domain.Booking
}
