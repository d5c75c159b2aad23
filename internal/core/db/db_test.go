package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantSource string
		wantErr    bool
	}{
		{name: "sqlite relative", url: "sqlite://events.db", wantDriver: DriverSQLite, wantSource: "events.db"},
		{name: "sqlite nested relative", url: "sqlite://data/events.db", wantDriver: DriverSQLite, wantSource: "data/events.db"},
		{name: "sqlite absolute", url: "sqlite:///var/lib/ck/events.db", wantDriver: DriverSQLite, wantSource: "/var/lib/ck/events.db"},
		{name: "postgres", url: "postgres://u:p@localhost:5432/ck?sslmode=disable", wantDriver: DriverPostgres, wantSource: "postgres://u:p@localhost:5432/ck?sslmode=disable"},
		{name: "postgresql alias", url: "postgresql://localhost/ck", wantDriver: DriverPostgres, wantSource: "postgresql://localhost/ck"},
		{name: "empty sqlite path", url: "sqlite://", wantErr: true},
		{name: "unsupported scheme", url: "mysql://localhost/ck", wantErr: true},
		{name: "malformed", url: "://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, source, err := ParseURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseURL(%q) error = nil, want error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseURL(%q) error = %v", tt.url, err)
			}
			if driver != tt.wantDriver || source != tt.wantSource {
				t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)", tt.url, driver, source, tt.wantDriver, tt.wantSource)
			}
		})
	}
}

func TestMigrateUp_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "ck.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := MigrateUp(ctx, conn); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	// Second run is a no-op.
	if err := MigrateUp(ctx, conn); err != nil {
		t.Fatalf("MigrateUp() second run error = %v", err)
	}

	statuses, err := MigrateStatus(ctx, conn)
	if err != nil {
		t.Fatalf("MigrateStatus() error = %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("MigrateStatus() returned no migrations")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not applied: %+v", s.ID, s)
		}
	}

	q, err := LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	var count int
	if err := q.Get(ctx, "count-events", &count); err != nil {
		t.Fatalf("count-events error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "ck.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	if err := MigrateUp(ctx, conn); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if _, err := conn.ExecContext(ctx, "UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := MigrateUp(ctx, conn); err == nil {
		t.Error("MigrateUp() error = nil, want checksum mismatch")
	}
}

func TestQueries_UnknownName(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "ck.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	q, err := LoadQueries(conn)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	if _, err := q.Raw("no-such-query"); err == nil {
		t.Error("Raw(unknown) error = nil, want error")
	}
}

func TestStripComments(t *testing.T) {
	got := stripComments("\n-- header\n  -- indented\nCREATE TABLE t (id INTEGER)\n")
	if got != "CREATE TABLE t (id INTEGER)" {
		t.Errorf("stripComments() = %q", got)
	}
	if stripComments("-- only a comment\n") != "" {
		t.Error("comment-only chunk should be empty")
	}
}
