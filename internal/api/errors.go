package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rep-protocol/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errorStatus = map[string]int{
	"IncorrectCreationFee": http.StatusBadRequest,
	"InvalidRoyalty":       http.StatusBadRequest,
	"InvalidTicker":        http.StatusBadRequest,
	"InvalidAddress":       http.StatusBadRequest,
	"InvalidAmount":        http.StatusBadRequest,
	"ZeroAmount":           http.StatusBadRequest,
	"IncorrectPrivilege":   http.StatusForbidden,
	"UnknownToken":         http.StatusNotFound,
	"DuplicateTicker":      http.StatusConflict,
	"DeadlineExpired":      http.StatusUnprocessableEntity,
	"InsufficientBalance":  http.StatusUnprocessableEntity,
	"InsufficientSupply":   http.StatusUnprocessableEntity,
	"OutputMismatch":       http.StatusUnprocessableEntity,
	"SlippageExceeded":     http.StatusUnprocessableEntity,
	"Overflow":             http.StatusUnprocessableEntity,
}

// statusFor maps a domain error to its HTTP status; anything unknown is a 500.
func statusFor(err error) (int, string) {
	kind := domain.ErrorKind(err)
	if status, ok := errorStatus[kind]; ok {
		return status, kind
	}
	return http.StatusInternalServerError, kind
}

func (s *Server) fail(c *gin.Context, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: kind, Message: msg})
}

// badRequest reports a malformed request body.
func badRequest(c *gin.Context, err error) {
	var kind string
	switch {
	case errors.Is(err, domain.ErrInvalidAddress):
		kind = "InvalidAddress"
	case errors.Is(err, domain.ErrInvalidAmount):
		kind = "InvalidAmount"
	default:
		kind = "InvalidRequest"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: kind, Message: err.Error()})
}
