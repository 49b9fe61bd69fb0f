package generation

import (
	"time"

	"github.com/google/uuid"
)

// Style identifies a coloring page rendering style
type Style string

const (
	StyleClassic  Style = "classic"
	StyleBold     Style = "bold"
	StyleKawaii   Style = "kawaii"
	StylePortrait Style = "portrait"
)

// IsValidStyle reports whether s names a known style
func IsValidStyle(s string) bool {
	switch Style(s) {
	case StyleClassic, StyleBold, StyleKawaii, StylePortrait:
		return true
	}
	return false
}

// Record is the audit row for one paid generation. Created after a
// successful debit and provider call; never mutated.
type Record struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	Style       Style     `db:"style" json:"style"`
	ChildName   string    `db:"child_name" json:"child_name,omitempty"`
	Prompt      string    `db:"prompt" json:"-"`
	SourceKey   string    `db:"source_key" json:"source_key,omitempty"`
	ResultKey   string    `db:"result_key" json:"result_key"`
	ThumbKey    string    `db:"thumb_key" json:"thumb_key"`
	CreditsUsed int       `db:"credits_used" json:"credits_used"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
