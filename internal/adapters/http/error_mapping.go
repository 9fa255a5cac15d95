package httpadapter

import (
	"net/http"

	"github.com/fitconnect/mealscan/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrInvalidImage):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrMealNotFound),
		domain.IsKind(err, domain.ErrScanNotFound),
		domain.IsKind(err, domain.ErrFoodNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrModelNotLoaded),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrPredictionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
