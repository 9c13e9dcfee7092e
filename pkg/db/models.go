package db

import "time"

// Word is the canonical (basic form, POS) entry shared by all analyses.
type Word struct {
	ID          int64
	Basic       string
	POS         string
	Reading     string
	Definitions string
}

// Source is a provenance record for an analyzed text.
type Source struct {
	ID         int64
	SourceType string
	Title      string
	Author     string
	Website    string
	URL        string
	Meta       string
	AddedAt    time.Time
}

// AnalysisSummary is one row of the analysis history.
type AnalysisSummary struct {
	ID          int64     `json:"id"`
	SourceID    int64     `json:"sourceId,omitempty"`
	SourceType  string    `json:"sourceType,omitempty"`
	Title       string    `json:"title,omitempty"`
	URL         string    `json:"url,omitempty"`
	POSTags     string    `json:"posTags"`
	TextLength  int       `json:"textLength"`
	WordCount   int       `json:"wordCount"`
	DistinctCnt int       `json:"distinctWords"`
	KanjiCount  int       `json:"kanjiCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
