package domain

// Capability names an action gated by role.
type Capability string

const (
	CapBookEquipment   Capability = "book_equipment"
	CapManageEquipment Capability = "manage_equipment"
	CapViewAllBookings Capability = "view_all_bookings"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleStudent: {CapBookEquipment},
	RoleTeacher: {CapBookEquipment, CapManageEquipment},
	RoleAdmin:   {CapBookEquipment, CapViewAllBookings},
}

func (r UserRole) Can(c Capability) bool {
	for _, granted := range roleCapabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID int64
	Role   UserRole
}

func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// CanModifyBooking reports whether actor may edit or cancel b. Only the
// owner may, whatever their role.
func CanModifyBooking(actor Actor, b *Booking) bool {
	return actor.Authenticated() && b != nil && b.UserID == actor.UserID
}
