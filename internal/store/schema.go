package store

// Schema for the local database. sync_status is the outbox; its layout must
// stay stable across app versions so in-flight entries survive an upgrade.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    document   TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_records_collection ON records (collection);

CREATE TABLE IF NOT EXISTS sync_status (
    id           TEXT PRIMARY KEY,
    entity_type  TEXT NOT NULL,
    entity_id    TEXT NOT NULL,
    action       TEXT NOT NULL,
    payload      BLOB NOT NULL,
    status       TEXT NOT NULL DEFAULT 'pending',
    attempts     INTEGER NOT NULL DEFAULT 0,
    last_attempt TIMESTAMP,
    created_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_status_drain ON sync_status (status, created_at, id);

CREATE TABLE IF NOT EXISTS offline_content (
    id               TEXT PRIMARY KEY,
    type             TEXT NOT NULL,
    entity_id        TEXT NOT NULL,
    local_path       TEXT NOT NULL,
    original_url     TEXT NOT NULL,
    file_size        INTEGER NOT NULL,
    downloaded_at    TIMESTAMP NOT NULL,
    last_accessed_at TIMESTAMP NOT NULL
);
`
