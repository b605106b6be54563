package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/wayfarer/internal/apperr"
	"github.com/starford/wayfarer/internal/document"
	"github.com/starford/wayfarer/internal/models"
	"github.com/starford/wayfarer/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "wayfarer-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func docJSON(t *testing.T, f models.DocumentFile) []byte {
	t.Helper()
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM images`).Scan(&count); err != nil {
		t.Fatalf("images table missing: %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{ID: "porto", Title: "Porto weekend", Checksum: "abc123", BlockCount: 3, UpdatedAt: time.Now()}
	imgs := []models.ImageRef{{BlockID: "b1", URL: "/attachments/bridge.jpg"}}
	if err := db.UpsertDocument(row, "Porto weekend\nBridges", imgs); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("porto")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
	got, err := db.GetDocument("porto")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Porto weekend" || got.BlockCount != 3 || got.ImageCount != 1 {
		t.Errorf("row = %+v", got)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetDocument("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	cs, err := db.GetChecksum("nope")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestImageUsers(t *testing.T) {
	db := testDB(t)
	shared := "/attachments/shared.jpg"
	_ = db.UpsertDocument(DocumentRow{ID: "a", Checksum: "1"}, "", []models.ImageRef{{BlockID: "x", URL: shared}})
	_ = db.UpsertDocument(DocumentRow{ID: "b", Checksum: "2"}, "", []models.ImageRef{{BlockID: "y", URL: shared}, {BlockID: "z", URL: "/other.jpg"}})

	users, err := db.ImageUsers(shared)
	if err != nil {
		t.Fatalf("ImageUsers: %v", err)
	}
	if len(users) != 2 || users[0].DocumentID != "a" || users[1].BlockID != "y" {
		t.Errorf("users = %+v", users)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "del", Checksum: "x"}, "body", []models.ImageRef{{BlockID: "b", URL: "/t.jpg"}})

	if err := db.DeleteDocument("del"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if cs, _ := db.GetChecksum("del"); cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	if users, _ := db.ImageUsers("/t.jpg"); len(users) != 0 {
		t.Errorf("image refs survived delete: %+v", users)
	}
}

func TestUpsertReplacesImages(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "up", Title: "Old", Checksum: "1"}, "old", []models.ImageRef{{BlockID: "b", URL: "/x.jpg"}})
	_ = db.UpsertDocument(DocumentRow{ID: "up", Title: "New", Checksum: "2"}, "new", []models.ImageRef{{BlockID: "b", URL: "/y.jpg"}})

	if cs, _ := db.GetChecksum("up"); cs != "2" {
		t.Errorf("checksum = %q, want 2", cs)
	}
	if users, _ := db.ImageUsers("/x.jpg"); len(users) != 0 {
		t.Error("old image ref should be removed on upsert")
	}
	if users, _ := db.ImageUsers("/y.jpg"); len(users) != 1 {
		t.Error("new image ref should exist")
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertDocument(DocumentRow{ID: "1", Title: "Zagreb", Checksum: "a", UpdatedAt: base}, "", nil)
	_ = db.UpsertDocument(DocumentRow{ID: "2", Title: "athens", Checksum: "b", UpdatedAt: base.Add(time.Hour)}, "", nil)
	_ = db.UpsertDocument(DocumentRow{ID: "3", Title: "Malta", Checksum: "c", UpdatedAt: base.Add(2 * time.Hour)}, "", nil)

	rows, total, err := db.ListDocuments(2, 0, "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].ID != "3" || rows[1].ID != "2" {
		t.Errorf("by updated: total=%d rows=%+v", total, rows)
	}

	rows, _, _ = db.ListDocuments(10, 0, SortTitle)
	if len(rows) != 3 || rows[0].Title != "athens" || rows[2].Title != "Zagreb" {
		t.Errorf("by title: %+v", rows)
	}

	rows, _, _ = db.ListDocuments(10, 2, "")
	if len(rows) != 1 || rows[0].ID != "1" {
		t.Errorf("offset: %+v", rows)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{ID: "s", Title: "Search Me", Checksum: "1"}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestIndexFile(t *testing.T) {
	db := testDB(t)
	data := docJSON(t, models.DocumentFile{
		ID: "trip",
		Blocks: []document.Block{
			{ID: "h", Type: document.Heading1, Content: document.Text("Azores")},
			{ID: "p", Type: document.Paragraph, Content: document.Text("whale watching")},
			{ID: "i", Type: document.Image, ImageURL: "/attachments/whale.jpg"},
		},
	})
	if err := IndexFile(db, "trip", data); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	row, err := db.GetDocument("trip")
	if err != nil {
		t.Fatal(err)
	}
	if row.Title != "Azores" || row.BlockCount != 3 || row.ImageCount != 1 {
		t.Errorf("row = %+v", row)
	}
	if res, _ := db.Search("whale", 5); len(res) != 1 {
		t.Errorf("search = %+v", res)
	}
	if err := IndexFile(db, "bad", []byte("{not json")); err == nil {
		t.Error("expected decode error")
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_ = store.Write("a.json", docJSON(t, models.DocumentFile{ID: "a", Title: "A", Blocks: []document.Block{{ID: "1", Type: document.Paragraph}}}))
	_ = db.UpsertDocument(DocumentRow{ID: "stale", Checksum: "old"}, "", nil)

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("a"); cs == "" {
		t.Error("a.json not indexed")
	}
	if cs, _ := db.GetChecksum("stale"); cs != "" {
		t.Error("stale entry not removed")
	}
}
