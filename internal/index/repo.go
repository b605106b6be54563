package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Checksum   string    `json:"checksum"`
	BlockCount int       `json:"block_count"`
	ImageCount int       `json:"image_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Sort orders accepted by ListDocuments.
const (
	SortUpdated = "updated_at"
	SortTitle   = "title"
)

// UpsertDocument inserts or replaces a document, its FTS entry, and image
// references within a transaction.
func (db *DB) UpsertDocument(d DocumentRow, body string, images []models.ImageRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, checksum, block_count, image_count, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title       = excluded.title,
			checksum    = excluded.checksum,
			block_count = excluded.block_count,
			image_count = excluded.image_count,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, d.ID, d.Title, d.Checksum, d.BlockCount, len(images), body, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	if err := ftsUpsert(tx, d.ID, d.Title, body); err != nil {
		return err
	}

	// Replace image references: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM images WHERE document_id = ?`, d.ID)
	if len(images) > 0 {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO images (document_id, block_id, url) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare image insert: %w", err)
		}
		defer stmt.Close()
		for _, img := range images {
			if _, err := stmt.Exec(d.ID, img.BlockID, img.URL); err != nil {
				return fmt.Errorf("index: insert image: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its FTS entry, and image references.
func (db *DB) DeleteDocument(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM images WHERE document_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, id)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(id string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE id = ?`, id).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetDocument returns one indexed document row.
func (db *DB) GetDocument(id string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`
		SELECT id, title, checksum, block_count, image_count, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &d.Checksum, &d.BlockCount, &d.ImageCount, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a page of documents and the total count. Unknown
// sort values fall back to most recently updated first.
func (db *DB) ListDocuments(limit, offset int, sort string) ([]DocumentRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := "updated_at DESC, id"
	if sort == SortTitle {
		order = "title COLLATE NOCASE, id"
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count documents: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, title, checksum, block_count, image_count, updated_at
		FROM documents
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list documents: %w", err)
	}
	defer rows.Close()

	out := []DocumentRow{}
	for rows.Next() {
		var d DocumentRow
		if err := rows.Scan(&d.ID, &d.Title, &d.Checksum, &d.BlockCount, &d.ImageCount, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

// ImageUsers returns every image block that displays url.
func (db *DB) ImageUsers(url string) ([]models.ImageRef, error) {
	rows, err := db.conn.Query(`SELECT document_id, block_id, url FROM images WHERE url = ? ORDER BY document_id, block_id`, url)
	if err != nil {
		return nil, fmt.Errorf("index: image users: %w", err)
	}
	defer rows.Close()

	var out []models.ImageRef
	for rows.Next() {
		var r models.ImageRef
		if err := rows.Scan(&r.DocumentID, &r.BlockID, &r.URL); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}
