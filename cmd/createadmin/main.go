// Command createadmin promotes an existing profile to the admin role.  It
// is the bootstrap path for the very first administrator: register the
// account through the API (or the provider dashboard), then run
//
//	createadmin --email someone@example.com --name "Full Name"
//
// The command talks directly to the identity provider and is idempotent:
// promoting an account that is already an admin simply rewrites the same
// role.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/credipyme/onboarding-api/internal/config"
	"github.com/credipyme/onboarding-api/internal/identity"
	"github.com/credipyme/onboarding-api/internal/model"
)

func main() {
	email := flag.String("email", "", "email of the user to promote (required)")
	name := flag.String("name", "", "full name to set on the profile (required)")
	flag.Parse()
	if *email == "" || *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	ids := identity.NewClient(cfg.IdentityURL, cfg.IdentityKey)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := ids.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("lookup %s failed: %v", *email, err)
	}

	admin := model.RoleAdmin
	updated, err := ids.UpdateProfile(ctx, profile.ID, identity.ProfileUpdate{
		FullName: name,
		Role:     &admin,
	})
	if err != nil {
		log.Fatalf("promote %s failed: %v", *email, err)
	}

	fmt.Printf("promoted %s (%s) to admin\n", updated.Email, updated.ID)
}
