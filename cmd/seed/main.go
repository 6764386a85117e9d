// Command seed creates the default administrator, halls and resources.
// Existing rows are left untouched, so it is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/database"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/service"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "adminpassword"
)

var (
	defaultHalls = []struct {
		name     string
		capacity int
	}{
		{"Function Hall", 200},
		{"PE Hall", 500},
	}
	defaultResources = []string{"Projector", "Speaker System", "Microphone", "Tables", "Chairs", "Whiteboard"}
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("database: migrate: %v", err)
	}

	stores := service.NewStores(db)
	admin, err := stores.Users.Create(ctx, repository.NewUser{
		Email:    adminEmail,
		Password: adminPassword,
		FullName: "Administrator",
		IsAdmin:  true,
	}, cfg.BcryptCost, time.Now())
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		if admin, err = stores.Users.GetByEmail(ctx, adminEmail); err != nil {
			log.Fatalf("seed: load admin: %v", err)
		}
		log.Printf("seed: admin %s already exists", adminEmail)
	case err != nil:
		log.Fatalf("seed: create admin: %v", err)
	default:
		log.Printf("seed: created admin %s", adminEmail)
	}

	if admin.Role() != model.RoleAdmin {
		log.Fatalf("seed: %s exists but is not an administrator", adminEmail)
	}

	catalog := service.NewCatalogService(stores, time.Now)
	actor := admin.Actor()
	for _, h := range defaultHalls {
		if _, err := catalog.CreateHall(ctx, actor, h.name, h.capacity); err != nil {
			if !skipExisting("hall", h.name, err) {
				log.Fatalf("seed: hall %s: %v", h.name, err)
			}
			continue
		}
		log.Printf("seed: created hall %s", h.name)
	}
	for _, name := range defaultResources {
		if _, err := catalog.CreateResource(ctx, actor, name); err != nil {
			if !skipExisting("resource", name, err) {
				log.Fatalf("seed: resource %s: %v", name, err)
			}
			continue
		}
		log.Printf("seed: created resource %s", name)
	}
}

func skipExisting(what, name string, err error) bool {
	if errors.Is(err, apperr.ErrConflict) {
		log.Printf("seed: %s %s already exists", what, name)
		return true
	}
	return false
}
