package http

import (
	"errors"
	"net/http"

	"interior-planboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrAuthenticationFailed) {
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	} else if errors.Is(err, service.ErrRegistrationFailed) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrDrawingNotFound) || errors.Is(err, service.ErrUserNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else if errors.Is(err, service.ErrInvalidDrawingType) || errors.Is(err, service.ErrInvalidCommand) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else {
		// Log the internal error for debugging
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
