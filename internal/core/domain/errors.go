package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTemporary    = errors.New("temporary failure")

	ErrMealNotFound = errors.New("meal not found")
	ErrScanNotFound = errors.New("scan not found")
	ErrFoodNotFound = errors.New("food not found")

	// Capture source conditions. Both are recoverable: denial routes the
	// client to a settings redirect, capture failure offers a retry.
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrCaptureFailed    = errors.New("capture failed")

	// Classifier taxonomy. ErrNoPrediction is a soft failure handled as a
	// normal low-confidence branch, not surfaced as an error state.
	ErrInvalidImage     = errors.New("invalid image")
	ErrModelNotLoaded   = errors.New("model not loaded")
	ErrNoPrediction     = errors.New("no usable prediction")
	ErrPredictionFailed = errors.New("prediction failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
