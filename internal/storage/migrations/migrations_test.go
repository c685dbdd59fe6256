package migrations

import (
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header; with a semicolon
CREATE TABLE a (x Int32);

CREATE TABLE b (
    y String
)
ENGINE = MergeTree();
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected first statement: %q", stmts[0])
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") || !strings.HasSuffix(stmts[1], "MergeTree()") {
		t.Errorf("unexpected second statement: %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	tests := []struct {
		sql     string
		wantErr bool
	}{
		{"SELECT 'a'; SELECT 'b';", false},
		{"SELECT 'it''s fine';", false},
		{"SELECT 'a;b';", true},
	}
	for _, tt := range tests {
		err := validateNoSemicolonInStrings(tt.sql)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: wantErr=%v, got %v", tt.sql, tt.wantErr, err)
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/forecast")
	if err != nil {
		t.Fatalf("databaseFromDSN failed: %v", err)
	}
	if db != "forecast" {
		t.Errorf("expected forecast, got %q", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	for _, tc := range []struct {
		dir string
	}{{"postgres"}, {"clickhouse"}} {
		fsys := PostgresFS
		if tc.dir == "clickhouse" {
			fsys = ClickhouseFS
		}
		files, err := load(fsys, tc.dir)
		if err != nil {
			t.Fatalf("load %s: %v", tc.dir, err)
		}
		if len(files) == 0 {
			t.Fatalf("no %s migrations embedded", tc.dir)
		}
		if !strings.Contains(files[0].sql, "daily_demand") {
			t.Errorf("%s: first migration does not create daily_demand", tc.dir)
		}
		if err := validateNoSemicolonInStrings(files[0].sql); err != nil {
			t.Errorf("%s: %v", tc.dir, err)
		}
	}
}
