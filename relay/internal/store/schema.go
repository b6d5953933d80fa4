package store

// Schema is the relay database schema. Timestamps are Unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS captures (
    id          TEXT PRIMARY KEY,
    item_id     TEXT NOT NULL,
    url         TEXT NOT NULL DEFAULT '',
    keyword     TEXT NOT NULL DEFAULT '',
    detail      TEXT NOT NULL,
    description TEXT NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_item ON captures(item_id, created_at);

-- One row per vendor item. status: captured, processing, processed, failed, uploading, uploaded.
CREATE TABLE IF NOT EXISTS products (
    item_id            TEXT PRIMARY KEY,
    capture_id         TEXT NOT NULL REFERENCES captures(id),
    status             TEXT NOT NULL,
    payload            TEXT,
    error              TEXT NOT NULL DEFAULT '',
    channel_product_no TEXT NOT NULL DEFAULT '',
    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_status ON products(status, updated_at);

CREATE TABLE IF NOT EXISTS categories (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    path TEXT NOT NULL DEFAULT ''
);

CREATE VIRTUAL TABLE IF NOT EXISTS categories_fts USING fts5(
    name,
    path,
    content='categories',
    content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS categories_ai AFTER INSERT ON categories BEGIN
    INSERT INTO categories_fts(rowid, name, path) VALUES (new.rowid, new.name, new.path);
END;
CREATE TRIGGER IF NOT EXISTS categories_ad AFTER DELETE ON categories BEGIN
    INSERT INTO categories_fts(categories_fts, rowid, name, path) VALUES ('delete', old.rowid, old.name, old.path);
END;
CREATE TRIGGER IF NOT EXISTS categories_au AFTER UPDATE ON categories BEGIN
    INSERT INTO categories_fts(categories_fts, rowid, name, path) VALUES ('delete', old.rowid, old.name, old.path);
    INSERT INTO categories_fts(rowid, name, path) VALUES (new.rowid, new.name, new.path);
END;

CREATE TABLE IF NOT EXISTS visit_log (
    id         TEXT PRIMARY KEY,
    url        TEXT NOT NULL,
    outcome    TEXT NOT NULL,
    missing    TEXT NOT NULL DEFAULT '',
    attempts   INTEGER NOT NULL DEFAULT 1,
    error      TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visit_log_created ON visit_log(created_at);
`
