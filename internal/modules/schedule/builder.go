package schedule

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"labbooking/internal/domain"
)

// WindowDays is how far past today the schedule reaches. Both ends of the
// window are inclusive.
const WindowDays = 7

type EquipmentLister interface {
	List(ctx context.Context) ([]domain.Equipment, error)
}

type BookingLister interface {
	ListBetween(ctx context.Context, from, to domain.Date) ([]domain.BookingDetails, error)
}

type Entry struct {
	BookingID int64            `json:"booking_id"`
	Username  string           `json:"username"`
	Date      domain.Date      `json:"date"`
	StartTime domain.ClockTime `json:"start_time"`
	EndTime   domain.ClockTime `json:"end_time"`
}

type EquipmentSchedule struct {
	EquipmentID int64   `json:"equipment_id"`
	Name        string  `json:"name"`
	Location    string  `json:"location,omitempty"`
	Entries     []Entry `json:"entries"`
}

type Schedule struct {
	From      domain.Date         `json:"from"`
	To        domain.Date         `json:"to"`
	Equipment []EquipmentSchedule `json:"equipment"`
}

// ByName flattens the schedule to equipment name -> entries. Equipment
// sharing a name is merged.
func (s *Schedule) ByName() map[string][]Entry {
	out := make(map[string][]Entry, len(s.Equipment))
	for _, eq := range s.Equipment {
		merged := append(out[eq.Name], eq.Entries...)
		if merged == nil {
			merged = []Entry{}
		}
		out[eq.Name] = merged
	}
	for name, entries := range out {
		sortEntries(entries)
		out[name] = entries
	}
	return out
}

type Builder struct {
	equipment EquipmentLister
	bookings  BookingLister
	loc       *time.Location
	now       func() time.Time
}

func NewBuilder(equipment EquipmentLister, bookings BookingLister, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{equipment: equipment, bookings: bookings, loc: loc, now: time.Now}
}

// Today is the current date in the builder's timezone.
func (b *Builder) Today() domain.Date {
	return domain.DateOf(b.now().In(b.loc))
}

// Build reads the registry and the bookings dated within [today,
// today+WindowDays]. Every piece of equipment appears, with an empty entry
// list when it has nothing booked.
func (b *Builder) Build(ctx context.Context, today domain.Date) (*Schedule, error) {
	if today.IsZero() {
		today = b.Today()
	}
	to := today.AddDays(WindowDays)

	equipment, err := b.equipment.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	bookings, err := b.bookings.ListBetween(ctx, today, to)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	byEquipment := make(map[int64][]Entry, len(equipment))
	for _, bk := range bookings {
		if bk.Date.Before(today) || bk.Date.After(to) {
			continue
		}
		byEquipment[bk.EquipmentID] = append(byEquipment[bk.EquipmentID], Entry{
			BookingID: bk.ID,
			Username:  bk.Username,
			Date:      bk.Date,
			StartTime: bk.StartTime,
			EndTime:   bk.EndTime,
		})
	}

	s := &Schedule{From: today, To: to, Equipment: make([]EquipmentSchedule, 0, len(equipment))}
	for _, eq := range equipment {
		entries := byEquipment[eq.ID]
		if entries == nil {
			entries = []Entry{}
		}
		sortEntries(entries)
		s.Equipment = append(s.Equipment, EquipmentSchedule{
			EquipmentID: eq.ID,
			Name:        eq.Name,
			Location:    eq.Location,
			Entries:     entries,
		})
	}
	return s, nil
}

func sortEntries(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		if c := cmp.Compare(a.StartTime, b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.BookingID, b.BookingID)
	})
}
