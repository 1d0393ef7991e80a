// Package main provides admin role management for Open Observatory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"openobservatory/internal/config"
	"openobservatory/internal/database"
	"openobservatory/internal/models"
	"openobservatory/internal/repository"
	"openobservatory/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin promote <username>   - Grant the ADMIN role")
	fmt.Println("  admin demote <username>    - Revoke the ADMIN role")
	fmt.Println("  admin list-admins          - List all admins")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	users := service.NewUserService(
		repository.NewUserRepository(db),
		repository.NewObservationRepository(db),
		repository.NewVoteRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewPushSubscriptionRepository(db),
		cfg.BcryptCost,
	)

	if err := run(context.Background(), users, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		database.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, users *service.UserService, args []string) error {
	switch args[0] {
	case "promote", "demote":
		if len(args) < 2 {
			return fmt.Errorf("usage: admin %s <username>", args[0])
		}
		role := models.RoleAdmin
		if args[0] == "demote" {
			role = models.RoleUser
		}
		user, err := users.SetRole(ctx, args[1], role)
		if errors.Is(err, models.ErrUnknownUser) {
			return fmt.Errorf("user %q not found", args[1])
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s (ID: %d) now has role %s\n", user.Username, user.ID, user.Role)
		return nil

	case "list-admins":
		admins, err := users.ListAdmins(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch admins: %w", err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found")
			return nil
		}
		for _, admin := range admins {
			fmt.Printf("ID: %d | Username: %s | Since: %s\n", admin.ID, admin.Username, admin.CreatedAt.Format("2006-01-02"))
		}
		return nil
	}
	usage()
	return fmt.Errorf("unknown command: %s", args[0])
}
