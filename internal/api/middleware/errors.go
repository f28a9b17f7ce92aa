package middleware

import (
	"errors"
	"net/http"

	"fleet-equipment-api/internal/models"
	"fleet-equipment-api/internal/repository"
	"fleet-equipment-api/internal/services"
	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// InternalErrorMessage is the only text clients see for unexpected failures.
const InternalErrorMessage = "Something went wrong!"

// ErrorHandler turns the last error a handler attached with c.Error into a
// JSON response. Internal error details are only echoed when showDetails
// is set.
func ErrorHandler(showDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		writeError(c, c.Errors.Last().Err, c.Errors.Last().IsType(gin.ErrorTypeBind), showDetails)
	}
}

// Recovery converts panics into a 500 response in the standard error shape.
func Recovery(showDetails bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Log.WithFields(logrus.Fields{
			"panic": recovered,
			"path":  c.Request.URL.Path,
		}).Error("recovered from panic")

		response := utils.APIResponse{Success: false, Message: InternalErrorMessage}
		if showDetails {
			response.Error = recovered
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, response)
	})
}

func writeError(c *gin.Context, err error, bindError, showDetails bool) {
	var validationErr *models.ValidationError
	var fieldErrs validator.ValidationErrors
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request entity too large", nil)
	case errors.As(err, &validationErr), errors.As(err, &fieldErrs):
		utils.ValidationErrorResponse(c, err)
	case bindError:
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
	case errors.Is(err, repository.ErrInvalidID):
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid id", nil)
	case errors.Is(err, repository.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "Resource not found", nil)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "Only active alerts can be resolved or dismissed", nil)
	case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrEmailTaken):
		utils.ErrorResponse(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, repository.ErrDuplicate):
		utils.ErrorResponse(c, http.StatusConflict, "Duplicate value for a unique field", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, services.ErrAccountInactive):
		utils.ErrorResponse(c, http.StatusUnauthorized, "Account is not active", nil)
	default:
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("request failed")

		response := utils.APIResponse{Success: false, Message: InternalErrorMessage}
		if showDetails {
			response.Error = err.Error()
		}
		c.JSON(http.StatusInternalServerError, response)
	}
}
