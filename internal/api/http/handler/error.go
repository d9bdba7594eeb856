package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/authkeeper/internal/model"
)

const internalErrorMessage = "internal server error"

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error to its HTTP status and public message. Store and
// unexpected errors never expose their detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "user already exists"
	case errors.Is(err, model.ErrInvalidCredential):
		return http.StatusUnauthorized, model.ErrInvalidCredential.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func abortWithError(c *gin.Context, err error) {
	code, message := statusFor(err)
	c.AbortWithStatusJSON(code, errorResponse{Error: message})
}
