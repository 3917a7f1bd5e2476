package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"labbooking/internal/domain"
	"labbooking/internal/observability"

	"gorm.io/gorm"
)

type UserRepository struct {
	db   *gorm.DB
	prom *observability.Prom
}

func NewUserRepository(db *gorm.DB, prom *observability.Prom) *UserRepository {
	return &UserRepository{db: db, prom: prom}
}

type userModel struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username;size:64;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;size:16;not null"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	return userModel{
		ID:           u.ID,
		Username:     normalizeUsername(u.Username),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func normalizeUsername(s string) string {
	return strings.TrimSpace(s)
}

// Create inserts u and fills in its id and timestamps. A taken username
// yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	err := r.prom.ObserveDB("users.create", func() error {
		return r.db.WithContext(ctx).Create(&m).Error
	})
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", ErrDuplicate, m.Username)
	}
	if err != nil {
		return err
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	err := r.prom.ObserveDB("users.get_by_username", func() error {
		return r.db.WithContext(ctx).Where("username = ?", normalizeUsername(username)).First(&m).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return r.db.WithContext(ctx).First(&m, id).Error
	})
	if err != nil {
		return nil, err
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.prom.ObserveDB("users.exists", func() error {
		return r.db.WithContext(ctx).Model(&userModel{}).
			Where("username = ?", normalizeUsername(username)).
			Count(&n).Error
	})
	return n > 0, err
}
