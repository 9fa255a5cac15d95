package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

func TestIngestScanStoresRecordsAndPublishes(t *testing.T) {
	repo := newScanRepoFake()
	store := &blobStoreFake{}
	queue := &queueFake{}
	uc := NewIngestScanUseCase(repo, store, queue)

	rec, err := uc.Submit(context.Background(), "user-1", "My Lunch Photo.PNG", bytes.NewReader([]byte("blob")))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rec.Status != domain.ScanUploaded {
		t.Fatalf("expected uploaded status, got %s", rec.Status)
	}
	if !strings.HasPrefix(rec.StoragePath, "user-1/"+rec.ID+"_") {
		t.Fatalf("unexpected storage path %q", rec.StoragePath)
	}
	if strings.Contains(rec.StoragePath, " ") {
		t.Fatalf("storage path must not carry spaces: %q", rec.StoragePath)
	}
	if _, ok := store.blobs[rec.StoragePath]; !ok {
		t.Fatalf("blob was not stored under %q", rec.StoragePath)
	}
	if _, ok := repo.records[rec.ID]; !ok {
		t.Fatalf("scan record was not created")
	}
	if len(queue.scanIDs) != 1 || queue.scanIDs[0] != rec.ID {
		t.Fatalf("expected scan event for %s, got %v", rec.ID, queue.scanIDs)
	}
}

func TestIngestScanRejectsEmptyUser(t *testing.T) {
	uc := NewIngestScanUseCase(newScanRepoFake(), &blobStoreFake{}, &queueFake{})

	if _, err := uc.Submit(context.Background(), "  ", "a.jpg", bytes.NewReader(nil)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestScanPublishFailurePropagates(t *testing.T) {
	queue := &queueFake{publishScanErr: errors.New("nats down")}
	uc := NewIngestScanUseCase(newScanRepoFake(), &blobStoreFake{}, queue)

	if _, err := uc.Submit(context.Background(), "user-1", "a.jpg", bytes.NewReader([]byte("blob"))); err == nil {
		t.Fatalf("expected publish error to propagate")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"simple.jpg", "simple.jpg"},
		{"My Lunch.png", "My_Lunch.png"},
		{"../../etc/passwd", "passwd"},
		{"äöü?.jpg", "____.jpg"},
		{"", "scan.jpg"},
		{".", "scan.jpg"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
