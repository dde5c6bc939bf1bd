package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/storefront/internal/csp"
)

// setupTestDB opens a database in a temporary directory with a controllable clock.
func setupTestDB(t *testing.T) (*ViolationDB, *time.Time) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), DefaultFileName), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	db.now = func() time.Time { return clock }
	return db, &clock
}

func scriptViolation(doc string) csp.Violation {
	return csp.Violation{
		DocumentURI:        doc,
		ViolatedDirective:  "script-src-elem",
		EffectiveDirective: "script-src-elem",
		BlockedURI:         "https://evil.example.com/x.js",
		LineNumber:         1,
	}
}

// TestOpen tests database creation rules.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "newdir", "subdir", DefaultFileName)
		db, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(path); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != path {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("accepts an explicit file path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.db")
		db, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		if db.Path() != path {
			t.Errorf("Path() = %q, want %q", db.Path(), path)
		}
	})

	t.Run("extensionless file path is used as is", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "violations")
		db, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()
		if db.Path() != path {
			t.Errorf("Path() = %q, want %q", db.Path(), path)
		}
	})

	t.Run("directory path is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), DefaultOptions())
		if !errors.Is(err, ErrIsDirectory) {
			t.Errorf("Open() error = %v, want ErrIsDirectory", err)
		}
	})

	t.Run("CreateIfNotExists=false requires an existing file", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultFileName)
		db, err := Open(path, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if err := db.Insert(context.Background(), scriptViolation("https://shop.example.com/")); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db, err = Open(path, Options{})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer db.Close()
		got, err := db.List(context.Background(), ListOptions{})
		if err != nil || len(got) != 1 {
			t.Errorf("List() = %v, %v", got, err)
		}
	})
}

// TestInsertGroupsByFingerprint tests the upsert counter.
func TestInsertGroupsByFingerprint(t *testing.T) {
	t.Parallel()

	db, clock := setupTestDB(t)
	ctx := context.Background()
	first := *clock

	if err := db.Insert(ctx, scriptViolation("https://shop.example.com/pages/about?a=1")); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(time.Minute)
	second := scriptViolation("https://shop.example.com/pages/about?a=2")
	second.LineNumber = 42
	if err := db.Insert(ctx, second); err != nil {
		t.Fatal(err)
	}
	other := scriptViolation("https://shop.example.com/")
	other.EffectiveDirective = "img-src"
	if err := db.Insert(ctx, other); err != nil {
		t.Fatal(err)
	}

	got, err := db.List(ctx, ListOptions{Directive: "script-src-elem"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("List() = %d groups, want 1", len(got))
	}
	r := got[0]
	if r.Count != 2 {
		t.Errorf("Count = %d, want 2", r.Count)
	}
	if r.Violation.LineNumber != 42 {
		t.Errorf("LineNumber = %d, want latest 42", r.Violation.LineNumber)
	}
	if !r.FirstSeen.Equal(first) || !r.LastSeen.Equal(first.Add(time.Minute)) {
		t.Errorf("seen = %v .. %v", r.FirstSeen, r.LastSeen)
	}
	if r.Fingerprint != second.Fingerprint() {
		t.Errorf("Fingerprint = %q", r.Fingerprint)
	}
}

// TestListOptions tests filtering and ordering.
func TestListOptions(t *testing.T) {
	t.Parallel()

	db, clock := setupTestDB(t)
	ctx := context.Background()
	start := *clock

	for i, doc := range []string{"https://a.example.com/", "https://b.example.com/", "https://c.example.com/"} {
		*clock = start.Add(time.Duration(i) * time.Hour)
		if err := db.Insert(ctx, scriptViolation(doc)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := db.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Violation.DocumentURI != "https://c.example.com/" {
		t.Fatalf("List() order = %+v", all)
	}

	limited, err := db.List(ctx, ListOptions{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Errorf("List(limit) = %d, %v", len(limited), err)
	}

	recent, err := db.List(ctx, ListOptions{Since: start.Add(90 * time.Minute)})
	if err != nil || len(recent) != 1 {
		t.Errorf("List(since) = %d, %v", len(recent), err)
	}

	removed, err := db.Prune(ctx, start.Add(90*time.Minute))
	if err != nil || removed != 2 {
		t.Errorf("Prune() = %d, %v, want 2", removed, err)
	}
}
