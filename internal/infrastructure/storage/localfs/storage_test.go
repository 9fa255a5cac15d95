package localfs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	base := t.TempDir()
	store, err := New(base, "/media/meals")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	url, err := store.Save(context.Background(), "user-1/meal-1.jpg", bytes.NewReader([]byte("jpeg-bytes")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if url != "/media/meals/user-1/meal-1.jpg" {
		t.Fatalf("unexpected url %q", url)
	}

	rc, err := store.Open(context.Background(), "user-1/meal-1.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if string(raw) != "jpeg-bytes" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestSaveConfinedToBase(t *testing.T) {
	base := t.TempDir()
	store, err := New(base, "/media/meals")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := store.Save(context.Background(), "../escape.jpg", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(base), "escape.jpg")); !os.IsNotExist(err) {
		t.Fatalf("key must not escape the base directory")
	}
	if _, err := os.Stat(filepath.Join(base, "escape.jpg")); err != nil {
		t.Fatalf("expected cleaned key inside base, stat error = %v", err)
	}
}

func TestOpenMissingKey(t *testing.T) {
	store, err := New(t.TempDir(), "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Open(context.Background(), "user-1/missing.jpg"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
