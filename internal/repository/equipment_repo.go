package repository

import (
	"context"
	"fmt"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EquipmentRepository struct {
	db   *gorm.DB
	prom *observability.Prom
}

func NewEquipmentRepository(db *gorm.DB, prom *observability.Prom) *EquipmentRepository {
	return &EquipmentRepository{db: db, prom: prom}
}

type equipmentModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:128;not null;index"`
	Model     string    `gorm:"column:model;size:128"`
	Status    string    `gorm:"column:status;size:32;not null;default:available"`
	Location  string    `gorm:"column:location;size:128"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (equipmentModel) TableName() string { return "equipment" }

func toDomainEquipment(m equipmentModel) *domain.Equipment {
	return &domain.Equipment{
		ID:        m.ID,
		Name:      m.Name,
		Model:     m.Model,
		Status:    domain.EquipmentStatus(m.Status),
		Location:  m.Location,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toEquipmentModel(e *domain.Equipment) equipmentModel {
	status := string(e.Status)
	if status == "" {
		status = string(domain.EquipmentAvailable)
	}
	return equipmentModel{
		ID:        e.ID,
		Name:      e.Name,
		Model:     e.Model,
		Status:    status,
		Location:  e.Location,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (r *EquipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	m := toEquipmentModel(e)
	err := r.prom.ObserveDB("equipment.create", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
	if err != nil {
		return err
	}
	*e = *toDomainEquipment(m)
	return nil
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	var m equipmentModel
	err := r.prom.ObserveDB("equipment.get", func() error {
		return r.db.WithContext(ctx).First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainEquipment(m), nil
}

// List returns the whole registry ordered by name, then id.
func (r *EquipmentRepository) List(ctx context.Context) ([]domain.Equipment, error) {
	var rows []equipmentModel
	err := r.prom.ObserveDB("equipment.list", func() error {
		return r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Equipment, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainEquipment(m))
	}
	return out, nil
}

// Update overwrites the mutable fields of e. Returns gorm.ErrRecordNotFound
// when no row has e.ID.
func (r *EquipmentRepository) Update(ctx context.Context, e *domain.Equipment) error {
	m := toEquipmentModel(e)
	err := r.prom.ObserveDB("equipment.update", func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&equipmentModel{}).Where("id = ?", m.ID).Updates(map[string]any{
				"name":       m.Name,
				"model":      m.Model,
				"status":     m.Status,
				"location":   m.Location,
				"updated_at": time.Now(),
			})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
			return tx.First(&m, m.ID).Error
		})
	})
	if err != nil {
		return err
	}
	*e = *toDomainEquipment(m)
	return nil
}

// DeleteIfUnused removes equipment that no booking references. Equipment with
// bookings yields ErrEquipmentInUse and is left untouched.
func (r *EquipmentRepository) DeleteIfUnused(ctx context.Context, id int64) error {
	return r.prom.ObserveDB("equipment.delete", func() error {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var m equipmentModel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
				return err
			}

			var n int64
			if err := tx.Model(&bookingModel{}).Where("equipment_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: %d booking(s) reference equipment %d", ErrEquipmentInUse, n, id)
			}
			return tx.Delete(&equipmentModel{}, id).Error
		})
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: equipment %d", ErrEquipmentInUse, id)
		}
		return err
	})
}
