package handlers

import (
	"errors"
	"net/http"

	"catalog-service/internal/filters"
	"catalog-service/internal/models"
	"catalog-service/internal/services"
	"catalog-service/internal/transfer"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.JSON(status, models.ErrorResponse{
		Success:    false,
		StatusCode: status,
		Message:    message,
		Error: &models.Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondServiceError maps pipeline errors to the error envelope
func respondServiceError(c *gin.Context, err error, fallbackCode, fallbackMessage string) {
	var (
		filterErr     *filters.InvalidFilterError
		formatErr     *transfer.FormatError
		validationErr *services.ValidationFailedError
	)
	switch {
	case errors.As(err, &filterErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success:    false,
			StatusCode: http.StatusBadRequest,
			Message:    filterErr.Error(),
			Error: &models.Error{
				Code:    "INVALID_FILTER",
				Message: filterErr.Message,
				Field:   filterErr.Field,
			},
		})
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Error(), validationErr.Errors)
	case errors.As(err, &formatErr):
		respondError(c, http.StatusBadRequest, "PARSE_ERROR", formatErr.Error(), nil)
	case errors.Is(err, transfer.ErrUnsupportedFormat):
		respondError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil)
	case errors.Is(err, transfer.ErrEmptyFile):
		respondError(c, http.StatusBadRequest, "EMPTY_FILE", "The file contains no product records", nil)
	case errors.Is(err, transfer.ErrNothingToExport):
		respondError(c, http.StatusNotFound, "NOTHING_TO_EXPORT", "No products matched the export filters", nil)
	default:
		respondError(c, http.StatusInternalServerError, fallbackCode, fallbackMessage, nil)
	}
}
