package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// IngestScanUseCase accepts a gallery-picked image, stores the blob, records
// the scan and hands it to the worker queue. A cancelled picker never reaches
// this path.
type IngestScanUseCase struct {
	scans ports.ScanRepository
	store ports.ImageStore
	queue ports.MessageQueue
}

func NewIngestScanUseCase(
	scans ports.ScanRepository,
	store ports.ImageStore,
	queue ports.MessageQueue,
) *IngestScanUseCase {
	return &IngestScanUseCase{
		scans: scans,
		store: store,
		queue: queue,
	}
}

func (uc *IngestScanUseCase) Submit(
	ctx context.Context,
	userID, filename string,
	body io.Reader,
) (*domain.ScanRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit scan", fmt.Errorf("empty user id"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", userID, id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if _, err := uc.store.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save scan image: %w", err)
	}

	rec := &domain.ScanRecord{
		ID:          id,
		UserID:      userID,
		StoragePath: storageKey,
		Status:      domain.ScanUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.scans.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create scan record: %w", err)
	}

	if err := uc.queue.PublishScanCaptured(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("publish scan event: %w", err)
	}

	return rec, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "scan.jpg"
	}
	return base
}
