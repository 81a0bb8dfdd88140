package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/service"
)

type errorResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func newErrorResponse(c *gin.Context, statusCode int, message string) {
	if statusCode >= http.StatusInternalServerError {
		logrus.WithField("path", c.FullPath()).Error(message)
	}
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: message})
}

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrDecode):
		newErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		newErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		newErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		newErrorResponse(c, http.StatusConflict, err.Error())
	default:
		newErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
