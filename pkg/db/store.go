package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/japaniel/morphan/pkg/analysis"
)

// ErrNotFound is returned when a requested analysis does not exist.
var ErrNotFound = errors.New("not found")

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// isUniqueConstraintErr returns true when the error indicates a unique/constraint violation
func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique") || strings.Contains(s, "constraint failed")
}

// CreateOrGetWord returns the id of the (basic, pos) word, inserting it if needed.
// The first non-empty reading stored for a word is kept.
func CreateOrGetWord(db DBExecutor, basic, pos, reading string) (int64, error) {
	if strings.TrimSpace(pos) == "" {
		return 0, fmt.Errorf("pos must be non-empty")
	}

	var id int64
	query := `INSERT INTO words (basic, pos, reading)
			  VALUES (?, ?, ?)
			  ON CONFLICT(basic, pos)
			  DO UPDATE SET
			    reading = COALESCE(NULLIF(words.reading, ''), excluded.reading)
			  RETURNING id`

	err := db.QueryRow(query, basic, pos, reading).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert word: %w", err)
	}
	return id, nil
}

// CreateOrGetSource returns existing source id or inserts a new source and returns its id.
func CreateOrGetSource(db DBExecutor, sourceType, title, author, website, url, meta string) (int64, error) {
	trimmedSourceType := strings.TrimSpace(sourceType)
	if trimmedSourceType == "" {
		return 0, fmt.Errorf("sourceType must be non-empty")
	}

	const maxRetries = 3

	var id int64
	for attempt := 0; attempt < maxRetries; attempt++ {
		// First, try to find an existing source.
		err := db.QueryRow(
			`SELECT id FROM sources WHERE IFNULL(url, '') = ? AND IFNULL(title, '') = ? AND IFNULL(author, '') = ?`,
			url, title, author,
		).Scan(&id)
		if err == nil {
			return id, nil
		}
		if err != sql.ErrNoRows {
			return 0, err
		}

		// No existing row; try to insert one.
		res, err := db.Exec(
			`INSERT INTO sources (source_type, title, author, website, url, meta) VALUES (?, ?, ?, ?, ?, ?)`,
			trimmedSourceType, title, author, website, url, meta,
		)
		if err != nil {
			// If another concurrent transaction inserted the same source, retry the SELECT.
			if isUniqueConstraintErr(err) {
				continue
			}
			return 0, err
		}
		return res.LastInsertId()
	}

	return 0, fmt.Errorf("could not create or get source after %d retries", maxRetries)
}

func encodePositions(ps []int) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ";")
}

func decodePositions(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ";")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad position %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

// nullableInt64 returns nil for 0 (meaning no source) else the value.
func nullableInt64(v int64) interface{} {
	if v == 0 {
		return nil
	}
	return v
}

// SaveAnalysis stores a result and returns the new analysis id. sourceID may be 0.
// Callers should pass a transaction so a failed save leaves no partial rows.
func SaveAnalysis(db DBExecutor, sourceID int64, posTags string, textLength int, res analysis.Result) (int64, error) {
	r, err := db.Exec(
		`INSERT INTO analyses (source_id, pos_tags, text_length, word_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		nullableInt64(sourceID), posTags, textLength, res.WordCount(), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	analysisID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	for seq, w := range res.ContentWords {
		wordID, err := CreateOrGetWord(db, w.Basic, w.POS, w.Reading)
		if err != nil {
			return 0, fmt.Errorf("persist word %s: %w", w.Basic, err)
		}
		_, err = db.Exec(
			`INSERT INTO analysis_words (analysis_id, word_id, seq, reading, occurrence_count, positions) VALUES (?, ?, ?, ?, ?, ?)`,
			analysisID, wordID, seq, w.Reading, w.Count, encodePositions(w.Positions),
		)
		if err != nil {
			return 0, fmt.Errorf("link word %d: %w", wordID, err)
		}
	}

	for seq, k := range res.KanjiList {
		if _, err := db.Exec(`INSERT INTO analysis_kanji (analysis_id, seq, kanji) VALUES (?, ?, ?)`, analysisID, seq, k); err != nil {
			return 0, fmt.Errorf("insert kanji %s: %w", k, err)
		}
	}
	return analysisID, nil
}

const summaryColumns = `a.id, IFNULL(a.source_id, 0), IFNULL(s.source_type, ''), IFNULL(s.title, ''), IFNULL(s.url, ''),
	a.pos_tags, a.text_length, a.word_count,
	(SELECT COUNT(*) FROM analysis_words aw WHERE aw.analysis_id = a.id),
	(SELECT COUNT(*) FROM analysis_kanji ak WHERE ak.analysis_id = a.id),
	a.created_at`

func scanSummary(sc interface{ Scan(...interface{}) error }) (AnalysisSummary, error) {
	var s AnalysisSummary
	err := sc.Scan(&s.ID, &s.SourceID, &s.SourceType, &s.Title, &s.URL,
		&s.POSTags, &s.TextLength, &s.WordCount, &s.DistinctCnt, &s.KanjiCount, &s.CreatedAt)
	return s, err
}

// ListAnalyses returns the most recent analyses, newest first.
func ListAnalyses(db DBExecutor, limit int) ([]AnalysisSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT `+summaryColumns+`
		FROM analyses a LEFT JOIN sources s ON s.id = a.source_id
		ORDER BY a.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []AnalysisSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetAnalysis loads a stored analysis. Words and kanji come back in the order
// they were saved.
func GetAnalysis(db DBExecutor, id int64) (AnalysisSummary, analysis.Result, error) {
	summary, err := scanSummary(db.QueryRow(`SELECT `+summaryColumns+`
		FROM analyses a LEFT JOIN sources s ON s.id = a.source_id
		WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return AnalysisSummary{}, analysis.Result{}, ErrNotFound
	}
	if err != nil {
		return AnalysisSummary{}, analysis.Result{}, err
	}

	res := analysis.Result{ContentWords: []analysis.AggregatedWord{}, KanjiList: []string{}}

	rows, err := db.Query(`SELECT w.basic, w.pos, IFNULL(aw.reading, ''), aw.occurrence_count, aw.positions
		FROM analysis_words aw JOIN words w ON w.id = aw.word_id
		WHERE aw.analysis_id = ? ORDER BY aw.seq`, id)
	if err != nil {
		return summary, res, err
	}
	defer rows.Close()
	for rows.Next() {
		var w analysis.AggregatedWord
		var positions string
		if err := rows.Scan(&w.Basic, &w.POS, &w.Reading, &w.Count, &positions); err != nil {
			return summary, res, err
		}
		if w.Positions, err = decodePositions(positions); err != nil {
			return summary, res, err
		}
		res.ContentWords = append(res.ContentWords, w)
	}
	if err := rows.Err(); err != nil {
		return summary, res, err
	}

	krows, err := db.Query(`SELECT kanji FROM analysis_kanji WHERE analysis_id = ? ORDER BY seq`, id)
	if err != nil {
		return summary, res, err
	}
	defer krows.Close()
	for krows.Next() {
		var k string
		if err := krows.Scan(&k); err != nil {
			return summary, res, err
		}
		res.KanjiList = append(res.KanjiList, k)
	}
	return summary, res, krows.Err()
}

// WordTotal is a word's frequency summed over every stored analysis.
type WordTotal struct {
	Word
	Total    int `json:"total"`
	Analyses int `json:"analyses"`
}

// TopWords returns the words seen most often across all analyses.
func TopWords(db DBExecutor, limit int) ([]WordTotal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT w.id, w.basic, w.pos, IFNULL(w.reading, ''), IFNULL(w.definitions, ''),
			SUM(aw.occurrence_count) AS total, COUNT(DISTINCT aw.analysis_id)
		FROM words w JOIN analysis_words aw ON aw.word_id = w.id
		GROUP BY w.id
		ORDER BY total DESC, w.id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WordTotal
	for rows.Next() {
		var wt WordTotal
		if err := rows.Scan(&wt.ID, &wt.Basic, &wt.POS, &wt.Reading, &wt.Definitions, &wt.Total, &wt.Analyses); err != nil {
			return nil, err
		}
		out = append(out, wt)
	}
	return out, rows.Err()
}

// UpdateWordDefinitions updates the definitions JSON for a given word.
func UpdateWordDefinitions(db DBExecutor, wordID int64, definitions string) error {
	if wordID <= 0 {
		return fmt.Errorf("wordID must be positive")
	}
	_, err := db.Exec(`UPDATE words SET definitions = ? WHERE id = ?`, definitions, wordID)
	return err
}

// WordsMissingDefinitions returns every word that has no definitions yet.
func WordsMissingDefinitions(db DBExecutor) ([]Word, error) {
	rows, err := db.Query(`SELECT id, basic, pos, IFNULL(reading, '') FROM words
		WHERE definitions IS NULL OR definitions = '' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Word
	for rows.Next() {
		var w Word
		if err := rows.Scan(&w.ID, &w.Basic, &w.POS, &w.Reading); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
