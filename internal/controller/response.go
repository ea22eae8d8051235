package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "pod_fulfillment_v1/pkg/errors"
)

// ==================== error mapping ====================

// respondError writes the status and body of a service error.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		_ = ctx.Error(err)
	}
	ctx.JSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	var (
		validation  *apperrors.ErrValidation
		notFound    *apperrors.ErrNotFound
		conflict    *apperrors.ErrConflict
		unavailable *apperrors.ErrProviderUnavailable
		rejected    *apperrors.ErrProvider
		transition  *apperrors.ErrInvalidStateTransition
	)

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error()}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &notFound):
		return http.StatusNotFound, gin.H{"error": notFound.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, gin.H{"error": conflict.Error()}
	case errors.As(err, &transition):
		return http.StatusConflict, gin.H{"error": transition.Error()}
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable, gin.H{
			"error":    "provider temporarily unavailable, try again later",
			"provider": unavailable.Provider,
		}
	case errors.As(err, &rejected):
		return http.StatusBadGateway, gin.H{
			"error":    rejected.Message,
			"provider": rejected.Provider,
		}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}
}

// badRequest is used for payloads that fail binding.
func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
