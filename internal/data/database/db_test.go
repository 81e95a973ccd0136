package database

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(Options{})
	if err == nil {
		t.Fatalf("expected error when no path supplied")
	}
}

func openTemp(t *testing.T, opts Options) *gorm.DB {
	t.Helper()

	if opts.Path == "" {
		opts.Path = filepath.Join(t.TempDir(), "journal.db")
	}
	database, err := Open(opts)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})
	return database
}

func TestOpenConfiguresSQLite(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		opts        Options
		wantTimeout time.Duration
	}{
		{name: "defaults", wantTimeout: 5 * time.Second},
		{name: "custom timeout", opts: Options{BusyTimeout: 1500 * time.Millisecond}, wantTimeout: 1500 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			database := openTemp(t, tc.opts)

			var foreignKeys, busyTimeout int
			var journalMode string
			pragmas := []struct {
				query string
				dest  any
			}{
				{"PRAGMA foreign_keys;", &foreignKeys},
				{"PRAGMA busy_timeout;", &busyTimeout},
				{"PRAGMA journal_mode;", &journalMode},
			}
			for _, p := range pragmas {
				if err := database.Raw(p.query).Scan(p.dest).Error; err != nil {
					t.Fatalf("%s failed: %v", p.query, err)
				}
			}

			if foreignKeys != 1 {
				t.Fatalf("expected foreign keys to be enforced, got %d", foreignKeys)
			}
			if want := int(tc.wantTimeout / time.Millisecond); busyTimeout != want {
				t.Fatalf("expected busy timeout %d, got %d", want, busyTimeout)
			}
			if !strings.EqualFold(strings.TrimSpace(journalMode), "wal") {
				t.Fatalf("expected WAL journal, got %q", journalMode)
			}
		})
	}
}

func TestOpenAppliesConnectionLimits(t *testing.T) {
	t.Parallel()

	database := openTemp(t, Options{MaxOpenConns: 7, MaxIdleConns: 3, ConnMaxIdle: 2 * time.Second, ConnMaxLife: 5 * time.Second})

	sqlDB, err := SQLDB(database)
	if err != nil {
		t.Fatalf("SQLDB returned error: %v", err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConns 7, got %d", stats.MaxOpenConnections)
	}
}

func TestOpenRoutesGormLogsThroughLogrus(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	database := openTemp(t, Options{Logger: logger, SlowThreshold: time.Millisecond})
	if err := database.Exec("SELECT * FROM missing_table").Error; err == nil {
		t.Fatalf("expected query against a missing table to fail")
	}
}

func TestSQLDBWithNilDatabase(t *testing.T) {
	t.Parallel()

	_, err := SQLDB(nil)
	if err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "journal.db")

	database := openTemp(t, Options{Path: path})

	if err := Ping(context.Background(), database); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("expected parent directory to exist: %v", err)
	}
}

func TestPingFailsAfterClose(t *testing.T) {
	t.Parallel()

	database, err := Open(Options{Path: filepath.Join(t.TempDir(), "closed.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if err := Close(database); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := Ping(context.Background(), database); err == nil {
		t.Fatalf("expected ping to fail on a closed database")
	}
}
