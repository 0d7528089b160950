package model

import "time"

// PlatformHandle links a user to an account on an external platform.
//
// Identity is (UserID, Platform). A handle with a nil VerifiedAt must never
// drive stat fetching or recommendations.
type PlatformHandle struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Platform          Platform   `json:"platform"`
	Handle            string     `json:"handle"`
	URL               string     `json:"url"`
	VerificationToken *string    `json:"verificationToken,omitempty"`
	VerifiedAt        *time.Time `json:"verifiedAt,omitempty"`
	LastSyncedAt      *time.Time `json:"lastSyncedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (h *PlatformHandle) Verified() bool {
	return h != nil && h.VerifiedAt != nil
}

// SolvedProblem is one row of the LeetCode solved ledger. Identity is
// (UserID, ProblemSlug); rows are never mutated after creation.
type SolvedProblem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ProblemSlug string    `json:"problemSlug"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Insight is the latest AI-generated coaching text for a user.
type Insight struct {
	UserID      string    `json:"userId"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Profile holds per-user settings that are not tied to a platform.
type Profile struct {
	UserID    string    `json:"userId"`
	Goal      string    `json:"goal"`
	UpdatedAt time.Time `json:"updatedAt"`
}
