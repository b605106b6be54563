package internal

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/wayfarer/internal/document"
)

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil || !strings.Contains(err.Error(), "config is required") {
		t.Errorf("err = %v", err)
	}
	if err := RunMCP(context.Background(), WithLogOutput(&bytes.Buffer{})); err == nil {
		t.Error("RunMCP without config should fail")
	}
}

func TestOpenStack(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")

	var logs bytes.Buffer
	app, err := newApplication([]Option{WithConfig(cfg), WithLogOutput(&logs)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	logger := newLogger(app.logOutput, cfg.App.LogLevel)

	st, err := openStack(cfg, logger)
	if err != nil {
		t.Fatalf("openStack: %v", err)
	}

	ctx := context.Background()
	if _, err := st.svc.Create(ctx, "lisbon", "Lisbon", []document.Block{
		{ID: "a", Type: document.Paragraph, Content: document.Text("Belém tower")},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.db.Ping(ctx); err != nil {
		st.Close()
		t.Fatalf("Ping: %v", err)
	}

	// A second stack over the same directories re-indexes from storage.
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	st2, err := openStack(cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	items, total, err := st2.svc.List(ctx, 0, 0, "")
	if err != nil || total != 1 || items[0].ID != "lisbon" {
		t.Errorf("List = %+v, %d, %v", items, total, err)
	}
	if !strings.Contains(logs.String(), `"level"`) {
		t.Errorf("expected JSON logs, got %q", logs.String())
	}
}
