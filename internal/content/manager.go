// Package content tracks large assets (PDFs, media) that have a local copy.
// Content refs live outside the outbox: created on download, deleted on
// eviction, never auto-synced.
package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/openlearn/edusync/internal/model"
	"github.com/openlearn/edusync/internal/util"
)

// ErrNotFound is returned when no content ref matches.
var ErrNotFound = errors.New("content not found")

type Manager struct {
	db       *sqlx.DB
	dir      string
	maxBytes int64
	client   *http.Client
}

type Opts struct {
	MaxBytes int64
	Timeout  time.Duration
}

func NewManager(db *sqlx.DB, dir string, opts Opts) *Manager {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Manager{
		db:       db,
		dir:      dir,
		maxBytes: opts.MaxBytes,
		client:   &http.Client{Timeout: timeout},
	}
}

// Download fetches the asset and records a content ref. The file lands in
// the content dir under a fresh ULID name; the original extension is kept so
// platform viewers can open it.
func (m *Manager) Download(ctx context.Context, contentType, entityID, url string) (model.ContentRef, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return model.ContentRef{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ContentRef{}, err
	}

	res, err := m.client.Do(req)
	if err != nil {
		return model.ContentRef{}, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return model.ContentRef{}, fmt.Errorf("download %s: status=%d", url, res.StatusCode)
	}

	id := util.NewULID()
	localPath := filepath.Join(m.dir, id+filepath.Ext(url))

	f, err := os.Create(localPath)
	if err != nil {
		return model.ContentRef{}, err
	}
	size, err := io.Copy(f, res.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(localPath)
		return model.ContentRef{}, err
	}

	now := time.Now().UTC()
	ref := model.ContentRef{
		ID:             id,
		Type:           contentType,
		EntityID:       entityID,
		LocalPath:      localPath,
		OriginalURL:    url,
		FileSize:       size,
		DownloadedAt:   now,
		LastAccessedAt: now,
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO offline_content
		    (id, type, entity_id, local_path, original_url, file_size, downloaded_at, last_accessed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ref.ID, ref.Type, ref.EntityID, ref.LocalPath, ref.OriginalURL, ref.FileSize, ref.DownloadedAt, ref.LastAccessedAt)
	if err != nil {
		_ = os.Remove(localPath)
		return model.ContentRef{}, err
	}

	return ref, nil
}

// GetForEntity returns the newest local copy for an entity and touches its
// access time.
func (m *Manager) GetForEntity(ctx context.Context, entityID string) (model.ContentRef, error) {
	var ref model.ContentRef
	err := m.db.GetContext(ctx, &ref, `
		SELECT id, type, entity_id, local_path, original_url, file_size, downloaded_at, last_accessed_at
		  FROM offline_content
		 WHERE entity_id = ?
		 ORDER BY downloaded_at DESC
		 LIMIT 1
	`, entityID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ContentRef{}, ErrNotFound
	}
	if err != nil {
		return model.ContentRef{}, err
	}

	_, err = m.db.ExecContext(ctx,
		`UPDATE offline_content SET last_accessed_at = ? WHERE id = ?`,
		time.Now().UTC(), ref.ID)
	return ref, err
}

// Evict removes a single local copy and its ref.
func (m *Manager) Evict(ctx context.Context, id string) error {
	var path string
	err := m.db.GetContext(ctx, &path,
		`SELECT local_path FROM offline_content WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // already gone
	}
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	_, err = m.db.ExecContext(ctx, `DELETE FROM offline_content WHERE id = ?`, id)
	return err
}

// TotalSize sums the tracked local copies.
func (m *Manager) TotalSize(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	err := m.db.GetContext(ctx, &n, `SELECT SUM(file_size) FROM offline_content`)
	return n.Int64, err
}

// Cleanup evicts least-recently-accessed copies until total size fits the
// configured budget. No-op when no budget is set.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	if m.maxBytes <= 0 {
		return 0, nil
	}

	total, err := m.TotalSize(ctx)
	if err != nil {
		return 0, err
	}

	evicted := 0
	for total > m.maxBytes {
		var ref model.ContentRef
		err := m.db.GetContext(ctx, &ref, `
			SELECT id, type, entity_id, local_path, original_url, file_size, downloaded_at, last_accessed_at
			  FROM offline_content
			 ORDER BY last_accessed_at ASC
			 LIMIT 1
		`)
		if errors.Is(err, sql.ErrNoRows) {
			break
		}
		if err != nil {
			return evicted, err
		}

		if err := m.Evict(ctx, ref.ID); err != nil {
			return evicted, err
		}
		total -= ref.FileSize
		evicted++
	}
	return evicted, nil
}
