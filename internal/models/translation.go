// Package models provides data model definitions for the EduSync client core.
package models

import "time"

// Translation is a cached text-translation result keyed by
// (source text, source language, target language). Entries are never
// updated in place; a fresh successful translation overwrites the row.
type Translation struct {
	SourceText     string `json:"source_text" db:"source_text"`
	SourceLang     string `json:"source_lang" db:"source_lang"`
	TargetLang     string `json:"target_lang" db:"target_lang"`
	TranslatedText string `json:"translated_text" db:"translated_text"`
	CreatedAt      int64  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for Translation.
func (Translation) TableName() string {
	return "translations"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (t *Translation) CreatedAtTime() time.Time {
	return time.Unix(t.CreatedAt, 0)
}

// Expired reports whether the entry is older than ttl at the given
// instant. Expired entries are skipped on lookup, not evicted.
func (t *Translation) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(t.CreatedAtTime()) > ttl
}
