package model

import "time"

// ContentRef tracks a large asset (PDF, media) that has a local copy.
// Its lifecycle is independent of the outbox: created on download, deleted
// on eviction, never auto-synced.
type ContentRef struct {
	ID             string    `db:"id"`
	Type           string    `db:"type"` // pdf|video|audio|image
	EntityID       string    `db:"entity_id"`
	LocalPath      string    `db:"local_path"`
	OriginalURL    string    `db:"original_url"`
	FileSize       int64     `db:"file_size"`
	DownloadedAt   time.Time `db:"downloaded_at"`
	LastAccessedAt time.Time `db:"last_accessed_at"`
}
