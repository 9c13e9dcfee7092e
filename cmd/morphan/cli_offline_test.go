package main_test

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func TestCLI_OfflineServer(t *testing.T) {
	tmp := t.TempDir()

	body, err := os.ReadFile(filepath.Join("testdata", "article.html"))
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	// Start local HTTP server serving the fixture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	defer srv.Close()

	dbPath := filepath.Join(tmp, "morphan.db")
	bin := filepath.Join(tmp, "morphan.bin")

	// Build the CLI binary (use full import path so it builds correctly regardless of the current working directory)
	build := exec.Command("go", "build", "-o", bin, "github.com/japaniel/morphan/cmd/morphan")
	build.Stdout = os.Stdout
	build.Stderr = os.Stderr
	if err := build.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	// Run with working dir = tmp so no config file or dictionary is picked up
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, bin, "analyze", "--url", srv.URL, "--save", "--db", dbPath, "--out", "out")
	cmd.Dir = tmp
	cmd.Env = append(os.Environ(), "HOME="+tmp)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("cli timed out, output:\n%s", out)
	}
	if err != nil {
		t.Fatalf("cli failed: %v\noutput:\n%s", err, out)
	}

	outStr := string(out)
	for _, want := range []string{"タイトル: 図書館の一日", "- 図書館 (名詞", "saved 127.0.0.1 as analysis #1"} {
		if !strings.Contains(outStr, want) {
			t.Fatalf("unexpected CLI output; missing %q in:\n%s", want, outStr)
		}
	}
	if strings.Contains(outStr, "としょかん") {
		t.Errorf("furigana leaked into the analysis:\n%s", outStr)
	}
	if _, err := os.Stat(filepath.Join(tmp, "out", "127.0.0.1_words.csv")); err != nil {
		t.Errorf("words csv not written: %v", err)
	}

	dbConn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer dbConn.Close()

	var sourceType, url string
	if err := dbConn.QueryRow("SELECT source_type, url FROM sources").Scan(&sourceType, &url); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if sourceType != "website_article" || !strings.HasPrefix(url, srv.URL) {
		t.Errorf("unexpected source row: %s %s", sourceType, url)
	}

	var words int
	if err := dbConn.QueryRow("SELECT COUNT(*) FROM analysis_words WHERE analysis_id = 1").Scan(&words); err != nil {
		t.Fatalf("db query failed: %v", err)
	}
	if words == 0 {
		t.Fatalf("expected stored words, found 0")
	}
}
