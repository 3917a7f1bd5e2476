package booking

import (
	"fmt"
	"strings"

	"labbooking/internal/domain"
)

// BookingForm is the body of book-equipment and edit-booking. The slot is
// given either as time_slot ("9-10") or as start_time/end_time ("09:00"),
// never both.
// JSON and form encodings are both accepted.
type BookingForm struct {
	EquipmentID int64  `json:"equipment_id" form:"equipment_id" binding:"required,gt=0"`
	Date        string `json:"date" form:"date" binding:"required,isodate"`
	TimeSlot    string `json:"time_slot" form:"time_slot" binding:"required_without=StartTime,excluded_with=StartTime EndTime,omitempty,hourrange"`
	StartTime   string `json:"start_time" form:"start_time" binding:"required_without=TimeSlot,omitempty,clock"`
	EndTime     string `json:"end_time" form:"end_time" binding:"required_with=StartTime,omitempty,clock"`
}

// ToRequest parses the form into typed values.
func (f BookingForm) ToRequest() (SlotRequest, error) {
	date, err := domain.ParseDate(f.Date)
	if err != nil {
		return SlotRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hasRange := strings.TrimSpace(f.TimeSlot) != ""
	hasTimes := strings.TrimSpace(f.StartTime) != "" || strings.TrimSpace(f.EndTime) != ""
	if hasRange && hasTimes {
		return SlotRequest{}, fmt.Errorf("%w: give either time_slot or start_time/end_time", ErrValidation)
	}

	var slot domain.Slot
	if hasRange {
		slot, err = domain.ParseHourRange(f.TimeSlot)
	} else {
		slot, err = parseClockRange(f.StartTime, f.EndTime)
	}
	if err != nil {
		return SlotRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return SlotRequest{EquipmentID: f.EquipmentID, Date: date, Slot: slot}, nil
}

func parseClockRange(start, end string) (domain.Slot, error) {
	from, err := domain.ParseClockTime(start)
	if err != nil {
		return domain.Slot{}, err
	}
	to, err := domain.ParseClockTime(end)
	if err != nil {
		return domain.Slot{}, err
	}
	return domain.NewSlot(from, to)
}
