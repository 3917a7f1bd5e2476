package repository

import (
	"fmt"

	"gorm.io/gorm"
)

const bookingsNoOverlap = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
			equipment_id WITH =,
			booking_date WITH =,
			int4range(start_minute, end_minute, '[)') WITH &&
		);
	END IF;
END
$$;`

// Migrate creates or updates the schema. On PostgreSQL it also installs an
// exclusion constraint so overlapping bookings are rejected by the store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userModel{}, &equipmentModel{}, &bookingModel{}); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS btree_gist").Error; err != nil {
		return fmt.Errorf("enable btree_gist: %w", err)
	}
	if err := db.Exec(bookingsNoOverlap).Error; err != nil {
		return fmt.Errorf("add bookings_no_overlap: %w", err)
	}
	return nil
}
