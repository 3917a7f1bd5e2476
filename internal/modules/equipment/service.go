package equipment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"labbooking/internal/domain"
	"labbooking/internal/repository"

	"gorm.io/gorm"
)

type Service struct {
	repo   EquipmentRepository
	notifs ChangeNotifier
	log    *slog.Logger
}

func NewService(repo EquipmentRepository, notifs ChangeNotifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, notifs: notifs, log: log}
}

func (s *Service) List(ctx context.Context) ([]domain.Equipment, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Equipment, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, req EquipmentRequest) (*domain.Equipment, error) {
	if !actor.Role.Can(domain.CapManageEquipment) {
		return nil, ErrForbidden
	}
	e := &domain.Equipment{}
	req.apply(e)
	if e.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "equipment created", "equipment_id", e.ID, "by", actor.UserID)
	s.notify(ctx, e.ID)
	return e, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, req EquipmentRequest) (*domain.Equipment, error) {
	if !actor.Role.Can(domain.CapManageEquipment) {
		return nil, ErrForbidden
	}
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	req.apply(e)
	if e.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, translate(err)
	}
	s.log.InfoContext(ctx, "equipment updated", "equipment_id", e.ID, "by", actor.UserID)
	s.notify(ctx, e.ID)
	return e, nil
}

// Delete removes equipment that has no bookings.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.Role.Can(domain.CapManageEquipment) {
		return ErrForbidden
	}
	if err := s.repo.DeleteIfUnused(ctx, id); err != nil {
		return translate(err)
	}
	s.log.InfoContext(ctx, "equipment deleted", "equipment_id", id, "by", actor.UserID)
	s.notify(ctx, id)
	return nil
}

func (s *Service) notify(ctx context.Context, id int64) {
	if s.notifs != nil {
		s.notifs.NotifyEquipmentChanged(ctx, id)
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrEquipmentInUse):
		return fmt.Errorf("%w: %v", ErrInUse, err)
	default:
		return err
	}
}
