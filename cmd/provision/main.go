// Command provision runs schema migrations and seeds accounts and facilities
// for a postgres-backed deployment.
//
//	provision [-config dir] migrate [up|down N]
//	provision [-config dir] superuser -username u -password p [-first f -last l]
//	provision [-config dir] user -username u -password p -group commandant
//	provision [-config dir] facility -name "Рудник Шануч" -slug shanuch-mine
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/movementcontrol/internal/app"
	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/config"
	"github.com/rpattn/movementcontrol/internal/db"
	"github.com/rpattn/movementcontrol/internal/domain"
	"github.com/rpattn/movementcontrol/internal/repository"
)

var errUsage = errors.New("usage: provision [-config dir] migrate|superuser|user|facility [flags]")

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml and .env")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger, flag.Args(), os.Stdout); err != nil {
		logger.Fatal("provisioning failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	if command == "migrate" {
		if cfg.Database.Driver != config.DriverPostgres {
			return fmt.Errorf("migrate needs database.driver=%s", config.DriverPostgres)
		}
		return migrate(cfg, logger, rest)
	}

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	switch command {
	case "superuser":
		return createUser(ctx, store, rest, out, true)
	case "user":
		return createUser(ctx, store, rest, out, false)
	case "facility":
		return createFacility(ctx, store, rest, out)
	default:
		return errUsage
	}
}

func migrate(cfg config.Config, logger *zap.Logger, args []string) error {
	if len(args) == 0 || args[0] == "up" {
		return db.RunMigrations(cfg.Database.Config, logger)
	}
	if args[0] != "down" || len(args) != 2 {
		return errUsage
	}
	steps, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid step count %q: %w", args[1], err)
	}
	return db.RollbackMigrations(cfg.Database.Config, steps, logger)
}

func createUser(ctx context.Context, store repository.Store, args []string, out io.Writer, superuser bool) error {
	fs := flag.NewFlagSet("user", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "initial password")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	patronymic := fs.String("patronymic", "", "patronymic")
	position := fs.String("position", "", "position")
	groups := fs.String("group", "", "comma-separated permission groups")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" || *password == "" {
		return errors.New("-username and -password are required")
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	user, err := store.Users().Create(ctx, domain.User{
		PersonName: domain.PersonName{
			FirstName:  strings.TrimSpace(*first),
			LastName:   strings.TrimSpace(*last),
			Patronymic: strings.TrimSpace(*patronymic),
			Position:   strings.TrimSpace(*position),
		},
		Username:     strings.TrimSpace(*username),
		PasswordHash: hash,
		IsSuperuser:  superuser,
		IsActive:     true,
		Groups:       splitGroups(*groups),
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Fprintf(out, "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func createFacility(ctx context.Context, store repository.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("facility", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	slug := fs.String("slug", "", "URL slug")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := domain.FacilityInput{Name: strings.TrimSpace(*name), Slug: strings.TrimSpace(*slug)}
	if err := in.Validate(); err != nil {
		return err
	}
	facility, err := store.Facilities().Create(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to create facility: %w", err)
	}
	fmt.Fprintf(out, "created facility %s (id %d)\n", facility.Slug, facility.ID)
	return nil
}

func splitGroups(raw string) []string {
	var groups []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}
