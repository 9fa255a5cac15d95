package llava

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/fitconnect/mealscan/internal/core/domain"
	"github.com/fitconnect/mealscan/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "llava status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("llava %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("llava %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyLlavaError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// mapClassifyError translates transport failures into the classifier error
// kinds the pipeline routes on.
func mapClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrNoPrediction) ||
		domain.IsKind(err, domain.ErrInvalidImage) ||
		domain.IsKind(err, domain.ErrModelNotLoaded) ||
		domain.IsKind(err, domain.ErrPredictionFailed) {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			return domain.WrapError(domain.ErrInvalidImage, "classify image", err)
		case http.StatusNotFound:
			// Ollama answers 404 for a model that is not pulled.
			return domain.WrapError(domain.ErrModelNotLoaded, "classify image", err)
		}
	}
	return domain.WrapError(domain.ErrPredictionFailed, "classify image", err)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
