package index

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/wayfarer/internal/checksum"
	"github.com/starford/wayfarer/internal/models"
	"github.com/starford/wayfarer/internal/storage"
)

// Sync walks the storage root and brings the index up to date:
//   - new/changed documents are decoded and upserted
//   - documents removed from disk are deleted from the index
func Sync(db DocumentIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}

		if checksums[m.ID] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.ID, data); err != nil {
			logger.Warn("sync: index failed", slog.String("id", m.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("id", m.ID))
		}
	}

	// Remove stale entries.
	for id := range checksums {
		if _, ok := disk[id]; !ok {
			if err := db.DeleteDocument(id); err != nil {
				logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("id", id))
			}
		}
	}

	return nil
}

// IndexFile decodes a stored document and upserts it into the index.
func IndexFile(db DocumentIndex, id string, data []byte) error {
	var f models.DocumentFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("index: decode %s: %w", id, err)
	}

	urls := f.ImageURLs()
	images := make([]models.ImageRef, 0, len(urls))
	for blockID, url := range urls {
		images = append(images, models.ImageRef{DocumentID: id, BlockID: blockID, URL: url})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].BlockID < images[j].BlockID })

	return db.UpsertDocument(DocumentRow{
		ID:         id,
		Title:      f.DisplayTitle(),
		Checksum:   checksum.Sum(data),
		BlockCount: len(f.Blocks),
		UpdatedAt:  f.UpdatedAt,
	}, f.PlainText(), images)
}
