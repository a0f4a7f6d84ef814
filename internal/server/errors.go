package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/irensaltali/fax-app-backend/internal/credit/domain"
	faxdomain "github.com/irensaltali/fax-app-backend/internal/fax/domain"
	"github.com/irensaltali/fax-app-backend/internal/fax/providers"
	"github.com/irensaltali/fax-app-backend/internal/storage"
	transferdomain "github.com/irensaltali/fax-app-backend/internal/transfer/domain"
	webhookdomain "github.com/irensaltali/fax-app-backend/internal/webhook/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Type: "internal_error", Code: "internal_error", Message: "internal server error",
		}

	// Client-fault: no retry expectation.
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, faxdomain.ErrNoRecipients),
		errors.Is(err, faxdomain.ErrNoAttachments),
		errors.Is(err, faxdomain.ErrAttachmentTooLarge),
		errors.Is(err, faxdomain.ErrMissingUser),
		errors.Is(err, creditdomain.ErrInvalidPages),
		errors.Is(err, creditdomain.ErrInvalidUser),
		errors.Is(err, providers.ErrProviderNotFound),
		errors.Is(err, providers.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrInvalidPayload),
		errors.Is(err, webhookdomain.ErrInvalidProvider),
		errors.Is(err, transferdomain.ErrInvalidTransfer),
		errors.Is(err, transferdomain.ErrAnonymousTarget):
		return http.StatusBadRequest, errorPayload{
			Type: "validation_error", Code: err.Error(), Message: "validation error",
		}

	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type: "credit_error", Code: err.Error(), Message: "insufficient page credits",
		}

	case errors.Is(err, faxdomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrGrantNotFound),
		errors.Is(err, webhookdomain.ErrProviderNotFound):
		return http.StatusNotFound, errorPayload{
			Type: "not_found", Code: err.Error(), Message: "resource not found",
		}

	case errors.Is(err, webhookdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type: "unauthorized", Code: err.Error(), Message: "signature verification failed",
		}

	// Server-fault: safe to retry from the client's perspective.
	case isCarrierError(err):
		return http.StatusBadGateway, errorPayload{
			Type: "carrier_error", Code: "carrier_error", Message: "carrier request failed",
		}

	case errors.Is(err, storage.ErrUploadFailed):
		return http.StatusBadGateway, errorPayload{
			Type: "storage_error", Code: "storage_error", Message: "document upload failed",
		}

	case errors.Is(err, providers.ErrProviderNotConfigured):
		return http.StatusInternalServerError, errorPayload{
			Type: "configuration_error", Code: err.Error(), Message: "provider is not configured",
		}

	case errors.Is(err, gorm.ErrInvalidTransaction), errors.Is(err, gorm.ErrInvalidDB):
		return http.StatusInternalServerError, errorPayload{
			Type: "database_error", Code: "database_error", Message: "database error",
		}

	default:
		return http.StatusInternalServerError, errorPayload{
			Type: "internal_error", Code: "internal_error", Message: "internal server error",
		}
	}
}

func isCarrierError(err error) bool {
	var carrierErr *providers.CarrierError
	return errors.As(err, &carrierErr)
}
