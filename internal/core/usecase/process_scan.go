package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	_ "image/png"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/core/ports"
)

// ProcessScanUseCase runs the classification leg of the gallery pipeline:
// load blob, normalize, classify, gate by confidence. Soft classifier
// outcomes (no usable prediction) land in needs_review, the same branch as a
// low-confidence result; only hard errors mark the scan failed.
type ProcessScanUseCase struct {
	scans      ports.ScanRepository
	store      ports.ImageStore
	preproc    ports.FramePreprocessor
	classifier ports.FoodClassifier
	threshold  float64
}

func NewProcessScanUseCase(
	scans ports.ScanRepository,
	store ports.ImageStore,
	preproc ports.FramePreprocessor,
	classifier ports.FoodClassifier,
	threshold float64,
) *ProcessScanUseCase {
	return &ProcessScanUseCase{
		scans:      scans,
		store:      store,
		preproc:    preproc,
		classifier: classifier,
		threshold:  threshold,
	}
}

func (uc *ProcessScanUseCase) ProcessByID(ctx context.Context, scanID string) error {
	if err := uc.scans.UpdateStatus(ctx, scanID, domain.ScanClassifying, ""); err != nil {
		return fmt.Errorf("set status=classifying: %w", err)
	}

	pred, err := uc.classifyStored(ctx, scanID)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoPrediction) {
			if reviewErr := uc.scans.UpdateStatus(ctx, scanID, domain.ScanNeedsReview, ""); reviewErr != nil {
				return fmt.Errorf("set status=needs_review: %w", reviewErr)
			}
			return nil
		}
		if failErr := uc.markFailed(ctx, scanID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	status := domain.ScanNeedsReview
	if domain.ResultStateFor(pred.Confidence, uc.threshold) == domain.StateHighConfidenceResult {
		status = domain.ScanReady
	}

	if err := uc.scans.SavePrediction(ctx, scanID, pred, status); err != nil {
		if failErr := uc.markFailed(ctx, scanID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

func (uc *ProcessScanUseCase) classifyStored(ctx context.Context, scanID string) (domain.FoodPrediction, error) {
	rec, err := uc.scans.GetByID(ctx, scanID)
	if err != nil {
		return domain.FoodPrediction{}, fmt.Errorf("fetch scan by id: %w", err)
	}

	raw, err := uc.openImage(ctx, rec.StoragePath)
	if err != nil {
		return domain.FoodPrediction{}, err
	}

	normalized, err := normalizeImage(uc.preproc, raw, domain.CapturedFrame{})
	if err != nil {
		return domain.FoodPrediction{}, err
	}

	pred, err := uc.classifier.Classify(ctx, normalized)
	if err != nil {
		return domain.FoodPrediction{}, fmt.Errorf("classify scan: %w", err)
	}
	return pred, nil
}

func (uc *ProcessScanUseCase) openImage(ctx context.Context, storagePath string) ([]byte, error) {
	reader, err := uc.store.Open(ctx, storagePath)
	if err != nil {
		return nil, fmt.Errorf("open scan image: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read scan image: %w", err)
	}
	return raw, nil
}

func (uc *ProcessScanUseCase) markFailed(ctx context.Context, scanID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.scans.UpdateStatus(ctx, scanID, domain.ScanFailed, processErr.Error())
}

// normalizeImage decodes a still, applies the scan-frame crop and re-encodes
// it for the classifier. A decode failure is a hard InvalidImage error; a
// crop that cannot fit falls back to the original inside the preprocessor.
func normalizeImage(preproc ports.FramePreprocessor, raw []byte, frame domain.CapturedFrame) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidImage, "decode image", err)
	}

	cropped := preproc.Crop(img, frame)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, cropped, &jpeg.Options{Quality: 90}); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidImage, "encode image", err)
	}
	return buf.Bytes(), nil
}
