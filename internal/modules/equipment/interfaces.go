package equipment

import (
	"context"

	"labbooking/internal/domain"
)

type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) error
	GetByID(ctx context.Context, id int64) (*domain.Equipment, error)
	List(ctx context.Context) ([]domain.Equipment, error)
	Update(ctx context.Context, e *domain.Equipment) error
	DeleteIfUnused(ctx context.Context, id int64) error
}

// ChangeNotifier is told when the registry changes.
type ChangeNotifier interface {
	NotifyEquipmentChanged(ctx context.Context, equipmentID int64)
}
