package migrate

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"

	"soori/internal/db"
)

func TestRun_EmptyDSN(t *testing.T) {
	err := Run("", Up, nil)
	if !errors.Is(err, ErrEmptyDSN) {
		t.Fatalf("Run with empty DSN err = %v, want ErrEmptyDSN", err)
	}
}

func TestParseDirection(t *testing.T) {
	for _, ok := range []string{"up", "down"} {
		d, err := ParseDirection(ok)
		if err != nil {
			t.Errorf("ParseDirection(%q): %v", ok, err)
		}
		if string(d) != ok {
			t.Errorf("ParseDirection(%q) = %q", ok, d)
		}
	}

	for _, bad := range []string{"", "invalid", "UP", "Up", "both"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Errorf("ParseDirection(%q) should return error", bad)
		}
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	err := Run("postgres://localhost/test", Direction("sideways"), nil)
	if err == nil {
		t.Fatal("Run with invalid direction should return error")
	}
	if !strings.Contains(err.Error(), "direction") {
		t.Errorf("error = %q, should mention direction", err.Error())
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	err := Run("not-a-url", Up, nil)
	if err == nil {
		t.Fatal("Run with invalid DSN should return error")
	}
}

func TestMigrationFS_PairsUpAndDown(t *testing.T) {
	entries, err := fs.ReadDir(db.MigrationFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
			down := strings.TrimSuffix(e.Name(), ".up.sql") + ".down.sql"
			if _, err := fs.Stat(db.MigrationFS, "migrations/"+down); err != nil {
				t.Errorf("%s has no matching %s", e.Name(), down)
			}
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("ups = %d, downs = %d", ups, downs)
	}
}

func TestRun_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	if err := Run(dsn, Up, nil); err != nil {
		t.Fatalf("Run up: %v", err)
	}
	if err := Run(dsn, Up, nil); err != nil {
		t.Errorf("second Run up should be a no-op, got %v", err)
	}
}
