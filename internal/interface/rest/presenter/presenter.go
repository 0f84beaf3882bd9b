package presenter

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"flightsurety-service/internal/domain/entity"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Created wraps a response for a newly registered resource.
func Created(c echo.Context, payload any) error {
	return c.JSON(http.StatusCreated, payload)
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Kind: kindName(entity.ErrInvalidArgument)})
}

func Unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: "X-Account header is required"})
}

// Error renders a ledger error with the status code of its kind.
func Error(c echo.Context, err error) error {
	kind := entity.KindOf(err)
	return c.JSON(StatusOf(err), errorResponse{Error: err.Error(), Kind: kindName(kind)})
}

// StatusOf maps an error kind to an HTTP status code.
func StatusOf(err error) int {
	switch entity.KindOf(err) {
	case entity.ErrUnauthorized:
		return http.StatusForbidden
	case entity.ErrAlreadyExists, entity.ErrDuplicateVote:
		return http.StatusConflict
	case entity.ErrNotFound:
		return http.StatusNotFound
	case entity.ErrInvalidState, entity.ErrIndexMismatch:
		return http.StatusUnprocessableEntity
	case entity.ErrInsufficientFunds, entity.ErrLimitExceeded, entity.ErrInvalidArgument:
		return http.StatusBadRequest
	case entity.ErrPaused:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func kindName(kind error) string {
	if kind == nil {
		return ""
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}
