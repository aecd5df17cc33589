// Command migrate применяет SQL миграции из migrations/ к PostgreSQL.
//
// Строка подключения: флаг -database-url, иначе конфигурация
// (EDGEAPI_DATABASE_URL, DATABASE_URL или EDGEAPI_DATABASE_HOST/...).
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Haleralex/edgeapi/internal/config"
	"github.com/Haleralex/edgeapi/internal/pkg/logger"
)

func main() {
	var (
		migrationsPath string
		databaseURL    string
		command        string
		steps          int
	)

	flag.StringVar(&migrationsPath, "path", "./migrations", "Path to migrations directory")
	flag.StringVar(&databaseURL, "database-url", "", "Database connection URL")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, force, version, drop")
	flag.IntVar(&steps, "steps", 0, "Number of steps for up/down (0 = all)")
	flag.Parse()

	log := logger.New(&logger.Config{Level: "info", Format: "text", Output: os.Stderr})

	if databaseURL == "" {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			fatal(log, "failed to load config", err)
		}
		databaseURL = cfg.Database.DSN()
	}

	// Позиционные аргументы: migrate up 2, migrate force 3
	args := flag.Args()
	if len(args) > 0 {
		command = args[0]
	}
	if len(args) > 1 && command != "force" {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(log, "invalid steps argument", err)
		}
		steps = n
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		fatal(log, "failed to create migrate instance", err)
	}
	defer m.Close()

	m.Log = &migrationLogger{log: log}

	if err := run(m, command, steps, args); err != nil {
		m.Close()
		fatal(log, "migration "+command+" failed", err)
	}
}

func run(m *migrate.Migrate, command string, steps int, args []string) error {
	switch command {
	case "up":
		var err error
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Println("Migrations applied successfully")

	case "down":
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		fmt.Println("Migrations rolled back successfully")

	case "force":
		if len(args) < 2 {
			return errors.New("force requires a version argument")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version: %w", err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		fmt.Printf("Forced version to %d\n", version)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("Current version: %d (dirty: %v)\n", version, dirty)

	case "drop":
		if err := m.Drop(); err != nil {
			return err
		}
		fmt.Println("All tables dropped successfully")

	default:
		return fmt.Errorf("unknown command %q, available: up, down, force, version, drop", command)
	}

	return nil
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.String("error", err.Error()))
	os.Exit(1)
}

// migrationLogger implements migrate.Logger interface
type migrationLogger struct {
	log *slog.Logger
}

func (l *migrationLogger) Printf(format string, v ...any) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l *migrationLogger) Verbose() bool {
	return true
}
