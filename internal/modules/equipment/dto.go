package equipment

import (
	"strings"

	"labbooking/internal/domain"
)

type EquipmentRequest struct {
	Name     string `json:"name" form:"name" binding:"required,max=128"`
	Model    string `json:"model" form:"model" binding:"max=128"`
	Status   string `json:"status" form:"status" binding:"max=32"`
	Location string `json:"location" form:"location" binding:"max=128"`
}

func (r EquipmentRequest) apply(e *domain.Equipment) {
	e.Name = strings.TrimSpace(r.Name)
	e.Model = strings.TrimSpace(r.Model)
	e.Location = strings.TrimSpace(r.Location)
	status := strings.ToLower(strings.TrimSpace(r.Status))
	if status == "" {
		status = string(domain.EquipmentAvailable)
	}
	e.Status = domain.EquipmentStatus(status)
}
