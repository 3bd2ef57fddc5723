package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrRateLimited matches any RateLimitedError with errors.Is.
var ErrRateLimited = errors.New("rate limited")

// RateLimitedError is returned when the API answers 429 Too Many Requests.
type RateLimitedError struct {
	Path string
	Body string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, ErrRateLimited)
}

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }

// ServerError is returned for 5xx answers.
type ServerError struct {
	Path string
	Code int
	Body string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: server error %d %s: %s", e.Path, e.Code, http.StatusText(e.Code), e.Body)
}

// APIError is returned for any other non 2xx answer.
type APIError struct {
	Path string
	Code int
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d %s: %s", e.Path, e.Code, http.StatusText(e.Code), e.Body)
}

// ParseError is returned when a 2xx answer is not valid JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: invalid JSON response: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// statusError classifies a non 2xx status code.
func statusError(path string, code int, body []byte) error {
	switch {
	case code == http.StatusTooManyRequests:
		return &RateLimitedError{Path: path, Body: string(body)}
	case code >= 500:
		return &ServerError{Path: path, Code: code, Body: string(body)}
	}
	return &APIError{Path: path, Code: code, Body: string(body)}
}

// Retryable reports whether err is worth retrying: rate limiting and server errors.
func Retryable(err error) bool {
	var serverErr *ServerError
	return errors.Is(err, ErrRateLimited) || errors.As(err, &serverErr)
}
