// Package lock serializes booking writes per (equipment, date) key.
package lock

import (
	"context"
	"errors"
	"fmt"

	"labbooking/internal/domain"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive ownership of a key until release is called.
// Acquire blocks until the key is free or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// SlotKey names the lock guarding all bookings of one equipment on one day.
func SlotKey(equipmentID int64, date domain.Date) string {
	return fmt.Sprintf("booking:%d:%s", equipmentID, date)
}
