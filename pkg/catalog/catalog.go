// Package catalog keeps an sqlite index of the snapshots written into an
// output directory.
package catalog

import (
	"path/filepath"

	"github.com/tauraamui/rgbdplay/pkg/catalog/models"
	"github.com/tauraamui/rgbdplay/pkg/catalog/repos"
	"github.com/tauraamui/rgbdplay/pkg/log"
	"github.com/tauraamui/xerror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const FileName = "snapshots.db"

type Snapshot = models.Snapshot

type Catalog struct {
	snapshots repos.SnapshotRepository
	close     func() error
}

// Open connects to the catalog inside dir, creating it on first use.
func Open(dir string) (*Catalog, error) {
	path := filepath.Join(dir, FileName)
	log.Debug("Connecting to catalog: %s", path) //nolint
	db, err := openDBConnection(path)
	if err != nil {
		return nil, xerror.Errorf("unable to open catalog connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, xerror.Errorf("unable to access catalog connection: %w", err)
	}

	if err := autoMigrate(db); err != nil {
		if closeErr := sqlDB.Close(); closeErr != nil {
			log.Error("Unable to close catalog connection: %v", closeErr)
		}
		return nil, xerror.Errorf("unable to run automigrations: %w", err)
	}

	return &Catalog{
		snapshots: repos.SnapshotRepository{DB: repos.Wrap(db)},
		close:     sqlDB.Close,
	}, nil
}

var autoMigrate = models.AutoMigrate

var openDBConnection = func(path string) (*gorm.DB, error) {
	logger := logger.New(nil, logger.Config{LogLevel: logger.Silent})
	return gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger})
}

func (c *Catalog) Record(snapshot Snapshot) error {
	if err := c.snapshots.Create(&snapshot); err != nil {
		return xerror.Errorf("unable to record snapshot %s: %w", snapshot.FileName, err)
	}
	return nil
}

func (c *Catalog) FindBySession(session string) ([]Snapshot, error) {
	return c.snapshots.FindBySession(session)
}

func (c *Catalog) Close() error {
	return c.close()
}
