// Command create-staff creates a staff account, or promotes an existing
// account to staff.  Staff users may modify the catalog; registration
// through the API never grants it.
//
//	create-staff -email admin@example.com -password s3cret
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/database"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

func main() {
	email := flag.String("email", "", "email of the staff account")
	password := flag.String("password", "", "password for a new account (ignored when promoting)")
	flag.Parse()
	if *email == "" {
		log.Fatal("-email is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(cfg) // connects and applies pending migrations
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	u, err := users.GetByEmail(ctx, *email)
	switch {
	case err == nil:
		if err := users.SetStaff(ctx, u.ID, true); err != nil {
			log.Fatalf("promote: %v", err)
		}
		log.Printf("promoted %s (id=%d) to staff", u.Email, u.ID)
	case errors.Is(err, repository.ErrNotFound):
		if len(*password) < utils.MinPasswordLen {
			log.Fatalf("-password must be at least %d characters", utils.MinPasswordLen)
		}
		nu := &model.User{Email: *email, IsStaff: true}
		if err := users.Create(ctx, nu, *password, cfg.BcryptCost); err != nil {
			log.Fatalf("create: %v", err)
		}
		log.Printf("created staff user %s (id=%d)", nu.Email, nu.ID)
	default:
		log.Fatalf("lookup: %v", err)
	}
}
