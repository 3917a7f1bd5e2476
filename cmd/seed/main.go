package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"labbooking/internal/config"
	"labbooking/internal/database"
	"labbooking/internal/domain"
	"labbooking/internal/modules/auth"
	"labbooking/internal/repository"

	"github.com/joho/godotenv"
)

type seedUser struct {
	username string
	password string
	role     domain.UserRole
}

var users = []seedUser{
	{"admin", "admin123", domain.RoleAdmin},
	{"teacher", "teacher123", domain.RoleTeacher},
	{"alice", "student123", domain.RoleStudent},
	{"bob", "student123", domain.RoleStudent},
}

var equipment = []domain.Equipment{
	{Name: "Oscilloscope", Model: "Rigol DS1054Z", Status: domain.EquipmentAvailable, Location: "Lab 101"},
	{Name: "Spectrometer", Model: "Ocean HR4000", Status: domain.EquipmentAvailable, Location: "Lab 204"},
	{Name: "3D Printer", Model: "Prusa MK4", Status: domain.EquipmentAvailable, Location: "Makerspace"},
	{Name: "Centrifuge", Model: "Eppendorf 5424", Status: domain.EquipmentUnavailable, Location: "Lab 110"},
}

// Seed is idempotent for users. Equipment and demo bookings are only
// created on an empty registry.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := slog.Default()
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("DB connection failed", "err", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := repository.Migrate(db); err != nil {
		log.Error("migration failed", "err", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(db, nil)
	equipmentRepo := repository.NewEquipmentRepository(db, nil)
	bookingRepo := repository.NewBookingRepository(db, nil)

	ids := make(map[string]int64, len(users))
	for _, su := range users {
		if existing, err := userRepo.GetByUsername(ctx, su.username); err == nil {
			ids[su.username] = existing.ID
			continue
		}
		hash, err := auth.HashPassword(su.password)
		if err != nil {
			log.Error("hash password", "err", err)
			os.Exit(1)
		}
		u := &domain.User{Username: su.username, PasswordHash: hash, Role: su.role}
		if err := userRepo.Create(ctx, u); err != nil {
			log.Error("create user", "username", su.username, "err", err)
			os.Exit(1)
		}
		ids[su.username] = u.ID
		log.Info("user created", "username", su.username, "role", su.role)
	}

	existing, err := equipmentRepo.List(ctx)
	if err != nil {
		log.Error("list equipment", "err", err)
		os.Exit(1)
	}
	if len(existing) > 0 {
		log.Info("equipment already seeded", "count", len(existing))
		return
	}

	created := make([]int64, 0, len(equipment))
	for i := range equipment {
		e := equipment[i]
		if err := equipmentRepo.Create(ctx, &e); err != nil {
			log.Error("create equipment", "name", e.Name, "err", err)
			os.Exit(1)
		}
		created = append(created, e.ID)
	}
	log.Info("equipment created", "count", len(created))

	tomorrow := domain.DateOf(time.Now().In(cfg.Location)).AddDays(1)
	demo := []struct {
		user      string
		equipment int64
		slot      string
	}{
		{"alice", created[0], "9-10"},
		{"bob", created[0], "10-12"},
		{"alice", created[1], "14-15"},
	}
	for _, d := range demo {
		slot, err := domain.ParseHourRange(d.slot)
		if err != nil {
			log.Error("parse slot", "slot", d.slot, "err", err)
			os.Exit(1)
		}
		b := &domain.Booking{
			UserID:      ids[d.user],
			EquipmentID: d.equipment,
			Date:        tomorrow,
			StartTime:   slot.Start,
			EndTime:     slot.End,
		}
		if err := bookingRepo.CreateIfFree(ctx, b); err != nil {
			log.Error("create booking", "user", d.user, "err", err)
			os.Exit(1)
		}
	}
	log.Info("demo bookings created", "date", tomorrow.String(), "count", len(demo))
}
