package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db   *gorm.DB
	prom *observability.Prom
}

func NewBookingRepository(db *gorm.DB, prom *observability.Prom) *BookingRepository {
	return &BookingRepository{db: db, prom: prom}
}

type bookingModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	UserID      int64     `gorm:"column:user_id;not null;index"`
	EquipmentID int64     `gorm:"column:equipment_id;not null;index:idx_bookings_slot,priority:1"`
	BookingDate string    `gorm:"column:booking_date;size:10;not null;index:idx_bookings_slot,priority:2"`
	StartMinute int       `gorm:"column:start_minute;not null;check:chk_bookings_start,start_minute >= 0"`
	EndMinute   int       `gorm:"column:end_minute;not null;check:chk_bookings_interval,end_minute > start_minute AND end_minute <= 1440"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`

	User      userModel      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Equipment equipmentModel `gorm:"foreignKey:EquipmentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (bookingModel) TableName() string { return "bookings" }

// bookingDetailsRow is a booking joined with its owner and equipment names.
type bookingDetailsRow struct {
	ID            int64
	UserID        int64
	EquipmentID   int64
	BookingDate   string
	StartMinute   int
	EndMinute     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Username      string
	EquipmentName string
}

func toDomainBooking(m bookingModel) (*domain.Booking, error) {
	date, err := domain.ParseDate(m.BookingDate)
	if err != nil {
		return nil, fmt.Errorf("booking %d: stored date: %w", m.ID, err)
	}
	return &domain.Booking{
		ID:          m.ID,
		UserID:      m.UserID,
		EquipmentID: m.EquipmentID,
		Date:        date,
		StartTime:   domain.ClockTime(m.StartMinute),
		EndTime:     domain.ClockTime(m.EndMinute),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}

func toBookingModel(b *domain.Booking) bookingModel {
	return bookingModel{
		ID:          b.ID,
		UserID:      b.UserID,
		EquipmentID: b.EquipmentID,
		BookingDate: b.Date.String(),
		StartMinute: int(b.StartTime),
		EndMinute:   int(b.EndTime),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBookingDetails(row bookingDetailsRow) (domain.BookingDetails, error) {
	b, err := toDomainBooking(bookingModel{
		ID:          row.ID,
		UserID:      row.UserID,
		EquipmentID: row.EquipmentID,
		BookingDate: row.BookingDate,
		StartMinute: row.StartMinute,
		EndMinute:   row.EndMinute,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	})
	if err != nil {
		return domain.BookingDetails{}, err
	}
	return domain.BookingDetails{
		Booking:       *b,
		Username:      row.Username,
		EquipmentName: row.EquipmentName,
	}, nil
}

// CreateIfFree inserts b unless it overlaps an existing booking for the same
// equipment and date. The check and the insert share one transaction, and on
// PostgreSQL the equipment row is locked for its duration.
func (r *BookingRepository) CreateIfFree(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	err := r.prom.ObserveDB("bookings.create", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := ensureSlotFree(tx, b); err != nil {
				return err
			}
			return tx.Omit(clause.Associations).Create(&m).Error
		})
	})
	if err != nil {
		return translateWriteErr(err)
	}
	out, err := toDomainBooking(m)
	if err != nil {
		return err
	}
	*b = *out
	return nil
}

// UpdateIfFree overwrites equipment, date and times of booking b.ID in one
// statement, excluding b itself from the overlap check.
func (r *BookingRepository) UpdateIfFree(ctx context.Context, b *domain.Booking) error {
	m := toBookingModel(b)
	err := r.prom.ObserveDB("bookings.update", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := ensureSlotFree(tx, b); err != nil {
				return err
			}
			res := tx.Model(&bookingModel{}).Where("id = ?", m.ID).Updates(map[string]any{
				"equipment_id": m.EquipmentID,
				"booking_date": m.BookingDate,
				"start_minute": m.StartMinute,
				"end_minute":   m.EndMinute,
				"updated_at":   time.Now(),
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.Omit(clause.Associations).First(&m, m.ID).Error
		})
	})
	if err != nil {
		return translateWriteErr(err)
	}
	out, err := toDomainBooking(m)
	if err != nil {
		return err
	}
	*b = *out
	return nil
}

func ensureSlotFree(tx *gorm.DB, b *domain.Booking) error {
	var eq equipmentModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&eq, b.EquipmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", ErrEquipmentMissing, b.EquipmentID)
	}
	if err != nil {
		return err
	}

	var sameDay []bookingModel
	err = tx.Omit(clause.Associations).
		Where("equipment_id = ? AND booking_date = ?", b.EquipmentID, b.Date.String()).
		Find(&sameDay).Error
	if err != nil {
		return err
	}
	for _, m := range sameDay {
		existing, err := toDomainBooking(m)
		if err != nil {
			return err
		}
		if b.ConflictsWith(existing) {
			return fmt.Errorf("%w: overlaps booking %d (%s %s)",
				ErrSlotTaken, existing.ID, existing.Date, existing.Slot())
		}
	}
	return nil
}

func translateWriteErr(err error) error {
	switch {
	case isExclusionViolation(err):
		return fmt.Errorf("%w: %v", ErrSlotTaken, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrEquipmentMissing, err)
	default:
		return err
	}
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var m bookingModel
	err := r.prom.ObserveDB("bookings.get", func() error {
		return r.db.WithContext(ctx).Omit(clause.Associations).First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainBooking(m)
}

// Delete removes booking id. Returns gorm.ErrRecordNotFound if it is gone.
func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	return r.prom.ObserveDB("bookings.delete", func() error {
		res := r.db.WithContext(ctx).Delete(&bookingModel{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *BookingRepository) detailsQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("bookings AS b").
		Select(`b.id, b.user_id, b.equipment_id, b.booking_date, b.start_minute, b.end_minute,
			b.created_at, b.updated_at,
			COALESCE(u.username, '') AS username,
			COALESCE(e.name, '') AS equipment_name`).
		Joins("LEFT JOIN users u ON u.id = b.user_id").
		Joins("LEFT JOIN equipment e ON e.id = b.equipment_id").
		Order("b.booking_date ASC, b.start_minute ASC, b.id ASC")
}

func (r *BookingRepository) scanDetails(op string, q *gorm.DB) ([]domain.BookingDetails, error) {
	var rows []bookingDetailsRow
	if err := r.prom.ObserveDB(op, func() error { return q.Scan(&rows).Error }); err != nil {
		return nil, err
	}
	out := make([]domain.BookingDetails, 0, len(rows))
	for _, row := range rows {
		d, err := toBookingDetails(row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// ListByUser returns the bookings owned by userID ordered by date, start
// time and id.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.BookingDetails, error) {
	return r.scanDetails("bookings.list_by_user", r.detailsQuery(ctx).Where("b.user_id = ?", userID))
}

func (r *BookingRepository) ListAll(ctx context.Context) ([]domain.BookingDetails, error) {
	return r.scanDetails("bookings.list_all", r.detailsQuery(ctx))
}

// ListBetween returns bookings dated within [from, to], both inclusive.
func (r *BookingRepository) ListBetween(ctx context.Context, from, to domain.Date) ([]domain.BookingDetails, error) {
	q := r.detailsQuery(ctx).Where("b.booking_date BETWEEN ? AND ?", from.String(), to.String())
	return r.scanDetails("bookings.list_between", q)
}
