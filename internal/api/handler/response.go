// Package handler implements spec.md §6's operation surface as gin
// handlers, grounded on purify's api/handler/*.go (request parsing,
// delegate to a domain controller, shape the JSON response) generalized
// from its single scrape/extract/batch/crawl set to this module's nine
// operations.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/searchscrape/internal/models"
)

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, models.APIResponse{Success: true, Data: data})
}

func needHITL(c *gin.Context, suggestedAction string) {
	c.JSON(http.StatusOK, models.NeedHITLResponse{Status: "NEED_HITL", SuggestedAction: suggestedAction})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: message},
	})
}

// fail maps an internal error to its HTTP status and structured body,
// following purify's mapErrorToStatus in api/handler/scrape.go.
func fail(c *gin.Context, err error) {
	appErr, isApp := err.(*models.AppError)
	if !isApp {
		appErr = &models.AppError{Code: models.ErrCodeInternal, Message: err.Error()}
	}
	c.JSON(statusForCode(appErr.Code), models.APIResponse{Success: false, Error: appErr.ToDetail()})
}

func statusForCode(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeBlocked, models.ErrCodeLLMAuthFailure:
		return http.StatusBadGateway
	case models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeCancelled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
