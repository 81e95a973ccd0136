package migrations

import (
	"context"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"juvenis/app/internal/data/database"
	"juvenis/app/internal/platform/textsearch"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

const migrationsTable = "schema_migrations"

// Apply brings the journal schema (volumes, news, users, admins, sessions) up to the latest version.
// The migration driver shares the Gorm connection pool and is intentionally not closed here.
func Apply(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "schema.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying journal schema")
	}

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "migration cancelled")
	}

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("journal schema migration failed")
		}
		return eris.Wrap(err, "migrating journal schema")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return eris.Wrap(err, "reading schema version")
	}
	if dirty {
		return eris.Errorf("schema version %d is dirty", version)
	}

	filled, err := backfillVolumeSearchKeys(ctx, db)
	if err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("volume search key backfill failed")
		}
		return err
	}
	if filled > 0 && logger != nil {
		logger.WithFields(logFields).WithField("rows", filled).Info("volume search keys backfilled")
	}

	if logger != nil {
		logger.WithFields(logFields).WithField("version", version).Info("journal schema migration complete")
	}

	return nil
}

func newMigrator(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := database.SQLDB(db)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(schemaFiles, "sql")
	if err != nil {
		return nil, eris.Wrap(err, "loading embedded migrations")
	}

	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, eris.Wrap(err, "preparing sqlite migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, eris.Wrap(err, "creating migrator")
	}

	return m, nil
}

type volumeKeyRow struct {
	ID     string
	Title  string
	Number string
}

// backfillVolumeSearchKeys fills search_title and search_number for rows written before those columns existed.
func backfillVolumeSearchKeys(ctx context.Context, db *gorm.DB) (int, error) {
	var rows []volumeKeyRow
	err := db.WithContext(ctx).
		Table("volumes").
		Select("id", "title", "number").
		Where("search_title = '' OR search_number = ''").
		Find(&rows).Error
	if err != nil {
		return 0, eris.Wrap(err, "listing volumes without search keys")
	}

	for _, row := range rows {
		err := db.WithContext(ctx).
			Table("volumes").
			Where("id = ?", row.ID).
			Updates(map[string]any{
				"search_title":  textsearch.Key(row.Title),
				"search_number": textsearch.Key(row.Number),
			}).Error
		if err != nil {
			return 0, eris.Wrapf(err, "backfilling search keys for volume %s", row.ID)
		}
	}

	return len(rows), nil
}
