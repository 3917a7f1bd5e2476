package domain

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	EquipmentID int64     `json:"equipment_id"`
	Date        Date      `json:"date"`
	StartTime   ClockTime `json:"start_time"`
	EndTime     ClockTime `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (b *Booking) Slot() Slot {
	return Slot{Start: b.StartTime, End: b.EndTime}
}

// ConflictsWith reports whether b and other claim overlapping time on the
// same equipment and day. A booking never conflicts with itself.
func (b *Booking) ConflictsWith(other *Booking) bool {
	if b.ID != 0 && b.ID == other.ID {
		return false
	}
	return b.EquipmentID == other.EquipmentID &&
		b.Date == other.Date &&
		b.Slot().Overlaps(other.Slot())
}

// BookingDetails is a booking joined with the display names of its owner
// and equipment.
type BookingDetails struct {
	Booking
	Username      string `json:"username,omitempty"`
	EquipmentName string `json:"equipment_name,omitempty"`
}
