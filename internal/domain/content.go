package domain

import (
	"time"
)

// SyncStatus is the freshness flag the content system keeps per entry.
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusOutdated SyncStatus = "outdated"
	SyncStatusPending  SyncStatus = "pending"
)

// Media is a media reference attached to an enrichment entry.
type Media struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Enrichment is supplementary descriptive content for a catalog entity,
// owned by the content system and keyed by the owning entity's id. It is
// read-only from this pipeline's perspective except for status marking
// after a push.
type Enrichment struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	OwnerKind   EntityKind `json:"owner_kind"`
	Description string     `json:"description"`
	Media       []Media    `json:"media"`
	Keywords    []string   `json:"keywords"`
	Status      SyncStatus `json:"status"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
