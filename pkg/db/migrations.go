package db

// migrationsSQL creates the schema. Statements are idempotent and separated by ";".
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_type TEXT NOT NULL,
	title TEXT,
	author TEXT,
	website TEXT,
	url TEXT,
	meta TEXT,
	added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sources_identity
	ON sources (IFNULL(url, ''), IFNULL(title, ''), IFNULL(author, ''));

CREATE TABLE IF NOT EXISTS words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	basic TEXT NOT NULL,
	pos TEXT NOT NULL,
	reading TEXT,
	definitions TEXT,
	UNIQUE (basic, pos)
);

CREATE TABLE IF NOT EXISTS analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id INTEGER REFERENCES sources(id),
	pos_tags TEXT NOT NULL,
	text_length INTEGER NOT NULL DEFAULT 0,
	word_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS analysis_words (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	word_id INTEGER NOT NULL REFERENCES words(id),
	seq INTEGER NOT NULL,
	reading TEXT,
	occurrence_count INTEGER NOT NULL,
	positions TEXT NOT NULL,
	UNIQUE (analysis_id, word_id)
);

CREATE INDEX IF NOT EXISTS idx_analysis_words_seq ON analysis_words (analysis_id, seq);

CREATE TABLE IF NOT EXISTS analysis_kanji (
	analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	kanji TEXT NOT NULL,
	PRIMARY KEY (analysis_id, seq)
);
`
