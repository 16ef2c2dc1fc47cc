// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Account Types ──────────────────────────────────────────────────────────

// DefaultStartingCredits is the balance granted to a new account.
const DefaultStartingCredits = 10

// Account represents a registered user with a prepaid credit balance.
// The password hash is opaque to everything except the identity service.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Credits      int64     `json:"credits"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ─── Generation Types ───────────────────────────────────────────────────────

// GenerationKind identifies one of the supported generation operations.
type GenerationKind string

const (
	KindRestyleImage GenerationKind = "restyle_image"
	KindStory        GenerationKind = "story"
	KindSoundscape   GenerationKind = "soundscape"
)

// GenerationRequest is a transient, per-request value. It is never persisted.
type GenerationRequest struct {
	Kind        GenerationKind
	Image       []byte // decoded image bytes
	StylePrompt string // restyle only; free text folded into the prompt template
}

// GenerationResult carries the success payload for one generation kind.
// Exactly one of the payload fields is populated, matching Kind.
type GenerationResult struct {
	Kind  GenerationKind
	Image []byte // restyle_image
	Story string // story
	Audio []byte // soundscape (MP3)
}
