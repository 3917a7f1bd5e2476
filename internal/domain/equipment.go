package domain

import "time"

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentUnavailable EquipmentStatus = "unavailable"
)

// Equipment is a bookable lab resource. Status is informational and
// free-form; it does not gate bookings.
type Equipment struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Model     string          `json:"model,omitempty"`
	Status    EquipmentStatus `json:"status"`
	Location  string          `json:"location,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
