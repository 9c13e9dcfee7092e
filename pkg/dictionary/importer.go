package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/japaniel/morphan/pkg/db"
)

// Importer fills in definitions for stored words that have none.
type Importer struct {
	conn   *sql.DB
	index  *Index
	Logger *slog.Logger
}

// NewImporter creates an Importer over an already built index.
func NewImporter(conn *sql.DB, index *Index) *Importer {
	return &Importer{conn: conn, index: index, Logger: slog.Default()}
}

// ProcessUpdates looks up every word without definitions and stores the
// matches. It returns the number of words updated.
func (im *Importer) ProcessUpdates(ctx context.Context) (int, error) {
	words, err := db.WordsMissingDefinitions(im.conn)
	if err != nil {
		return 0, fmt.Errorf("list words: %w", err)
	}

	tx, err := im.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	updated := 0
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		matches := im.index.Lookup(w.Basic, w.Reading)
		if len(matches) == 0 {
			continue
		}
		defJSON, err := FormatDefinitions(matches)
		if err != nil {
			im.Logger.Warn("format definitions", "word", w.Basic, "error", err)
			continue
		}
		if err := db.UpdateWordDefinitions(tx, w.ID, defJSON); err != nil {
			return 0, fmt.Errorf("update word %d: %w", w.ID, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	im.Logger.Info("definitions imported", "checked", len(words), "updated", updated)
	return updated, nil
}
