package domain

import "time"

// Review is the persisted analysis record. Rows are append-only: once
// created a review is never updated or deleted. Duplicate review_text rows
// can accumulate when a poisoned entry forces re-analysis; lookups always
// take the newest row.
type Review struct {
	ID           int64
	ProductName  string
	ReviewText   string
	Sentiment    string
	Confidence   float64
	KeyPointsRaw []byte // JSON-encoded list of strings, as stored
	CreatedAt    time.Time
}

// Classification is the label/score pair produced by either the remote
// classifier or the local fallback estimator.
type Classification struct {
	Label string
	Score float64
}

// Analysis is the read model for the analyze and listing paths, with key
// points decoded out of their stored encoding. Cached is true only when the
// record was served from a prior analysis without touching the remote
// endpoints.
type Analysis struct {
	ID          int64
	ProductName string
	ReviewText  string
	Sentiment   string
	Confidence  float64
	KeyPoints   []string
	CreatedAt   time.Time
	Cached      bool
}
