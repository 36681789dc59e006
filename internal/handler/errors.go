package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/lookup"
	"tickerlens-api/pkg/market"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// BadRequest marks err as a client input problem.
func BadRequest(err error) error {
	return badRequestError{err: err}
}

// StatusOf maps domain errors onto HTTP status codes.
func StatusOf(err error) int {
	var bad badRequestError
	switch {
	case errors.As(err, &bad), errors.Is(err, market.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrInvalidTicker):
		return http.StatusNotFound
	case errors.Is(err, lookup.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler is installed with httpx.SetErrorHandlerCtx.
func ErrorHandler(ctx context.Context, err error) (int, any) {
	code := StatusOf(err)
	if code >= http.StatusInternalServerError {
		logx.WithContext(ctx).Errorf("request failed: %v", err)
	}
	return code, ErrorBody{Code: code, Message: err.Error()}
}
