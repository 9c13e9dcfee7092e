package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func tableColumns(t *testing.T, dbConn *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := dbConn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	return cols
}

// TestInitDBCreatesSchema verifies a fresh database gets every table and the
// columns the store relies on.
func TestInitDBCreatesSchema(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	if err := InitDB(dbConn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	want := map[string][]string{
		"sources":        {"source_type", "title", "url"},
		"words":          {"basic", "pos", "reading", "definitions"},
		"analyses":       {"source_id", "pos_tags", "text_length", "word_count", "created_at"},
		"analysis_words": {"analysis_id", "word_id", "seq", "reading", "occurrence_count", "positions"},
		"analysis_kanji": {"analysis_id", "seq", "kanji"},
	}
	for table, cols := range want {
		got := tableColumns(t, dbConn, table)
		for _, c := range cols {
			if !got[c] {
				t.Errorf("%s.%s missing, got %v", table, c, got)
			}
		}
	}
}

func TestInitDBIsIdempotent(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	for i := 0; i < 2; i++ {
		if err := InitDB(dbConn); err != nil {
			t.Fatalf("InitDB run %d failed: %v", i+1, err)
		}
	}
}
