package postgres

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

// Migrate applies every pending schema migration from the configured
// directory. A schema already at the latest version is not an error.
func Migrate(cfg config.DatabaseConfig, logger logging.Logger) error {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL())
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "initializing migrator")
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema already up to date")
			return nil
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "applying migrations")
	}

	version, dirty, _ := m.Version()
	logger.Info("schema migrated",
		logging.Int("version", int(version)),
		logging.Bool("dirty", dirty))
	return nil
}
