package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/lock"
	"labbooking/internal/observability"
	"labbooking/internal/repository"

	"gorm.io/gorm"
)

const lockWaitTimeout = 5 * time.Second

// SlotRequest is the typed, parsed form of a create or edit request.
type SlotRequest struct {
	EquipmentID int64
	Date        domain.Date
	Slot        domain.Slot
}

func (r SlotRequest) validate() error {
	if r.EquipmentID <= 0 {
		return fmt.Errorf("%w: equipment_id must be positive", ErrValidation)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if err := r.Slot.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

type Service struct {
	bookings BookingRepository
	locker   lock.Locker
	notifs   ChangeNotifier
	metrics  *observability.Prom
	log      *slog.Logger
}

// NewService wires the engine. notifs and metrics may be nil.
func NewService(
	bookings BookingRepository,
	locker lock.Locker,
	notifs ChangeNotifier,
	metrics *observability.Prom,
	log *slog.Logger,
) *Service {
	if locker == nil {
		locker = lock.NewMemoryLocker()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		bookings: bookings,
		locker:   locker,
		notifs:   notifs,
		metrics:  metrics,
		log:      log,
	}
}

// Create books req for actor. Nothing is written when the slot overlaps an
// existing booking of the same equipment on the same date.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req SlotRequest) (b *domain.Booking, err error) {
	defer func() { s.record("create", err) }()

	if !actor.Role.Can(domain.CapBookEquipment) {
		return nil, ErrForbidden
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	b = &domain.Booking{
		UserID:      actor.UserID,
		EquipmentID: req.EquipmentID,
		Date:        req.Date,
		StartTime:   req.Slot.Start,
		EndTime:     req.Slot.End,
	}
	err = s.withSlotLock(ctx, lock.SlotKey(b.EquipmentID, b.Date), func() error {
		return s.bookings.CreateIfFree(ctx, b)
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}

	s.log.InfoContext(ctx, "booking created",
		"booking_id", b.ID, "user_id", b.UserID, "equipment_id", b.EquipmentID,
		"date", b.Date.String(), "slot", b.Slot().String())
	s.notify(ctx, Change{Kind: ChangeCreated, Booking: *b})
	return b, nil
}

// Edit overwrites equipment, date and slot of booking id. The booking itself
// is ignored when checking for overlaps.
func (s *Service) Edit(ctx context.Context, actor domain.Actor, id int64, req SlotRequest) (b *domain.Booking, err error) {
	defer func() { s.record("edit", err) }()

	current, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	previous := *current
	b = &domain.Booking{
		ID:          current.ID,
		UserID:      current.UserID,
		EquipmentID: req.EquipmentID,
		Date:        req.Date,
		StartTime:   req.Slot.Start,
		EndTime:     req.Slot.End,
		CreatedAt:   current.CreatedAt,
	}
	err = s.withSlotLock(ctx, lock.SlotKey(b.EquipmentID, b.Date), func() error {
		return s.bookings.UpdateIfFree(ctx, b)
	})
	if err != nil {
		return nil, translateRepoErr(err)
	}

	s.log.InfoContext(ctx, "booking edited",
		"booking_id", b.ID, "user_id", b.UserID, "equipment_id", b.EquipmentID,
		"date", b.Date.String(), "slot", b.Slot().String())
	s.notify(ctx, Change{Kind: ChangeEdited, Booking: *b, Previous: &previous})
	return b, nil
}

// Cancel permanently removes booking id.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64) (err error) {
	defer func() { s.record("cancel", err) }()

	b, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		return translateRepoErr(err)
	}

	s.log.InfoContext(ctx, "booking cancelled", "booking_id", id, "user_id", actor.UserID)
	s.notify(ctx, Change{Kind: ChangeCancelled, Booking: *b})
	return nil
}

// Get returns booking id if actor owns it.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	return s.owned(ctx, actor, id)
}

func (s *Service) ListForUser(ctx context.Context, actor domain.Actor) ([]domain.BookingDetails, error) {
	if !actor.Authenticated() {
		return nil, ErrForbidden
	}
	return s.bookings.ListByUser(ctx, actor.UserID)
}

func (s *Service) ListAll(ctx context.Context, actor domain.Actor) ([]domain.BookingDetails, error) {
	if !actor.Role.Can(domain.CapViewAllBookings) {
		return nil, ErrForbidden
	}
	return s.bookings.ListAll(ctx)
}

func (s *Service) owned(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	if !domain.CanModifyBooking(actor, b) {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) withSlotLock(ctx context.Context, key string, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockWaitTimeout)
	defer cancel()

	start := time.Now()
	release, err := s.locker.Acquire(lockCtx, key)
	s.metrics.ObserveLockWait(time.Since(start), err)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer release()
	return fn()
}

func (s *Service) notify(ctx context.Context, change Change) {
	if s.notifs == nil {
		return
	}
	s.notifs.NotifyBookingChanged(ctx, change)
}

func (s *Service) record(op string, err error) {
	s.metrics.BookingOutcome(op, outcomeOf(err))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrConflict):
		return observability.OutcomeConflict
	case errors.Is(err, ErrValidation):
		return observability.OutcomeInvalid
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEquipmentNotFound):
		return observability.OutcomeNotFound
	case errors.Is(err, ErrForbidden):
		return observability.OutcomeForbidden
	default:
		return observability.OutcomeError
	}
}

func translateRepoErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrSlotTaken):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrEquipmentMissing):
		return fmt.Errorf("%w: %v", ErrEquipmentNotFound, err)
	default:
		return err
	}
}
