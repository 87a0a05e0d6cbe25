package scanner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors form the remote error taxonomy. API responses and transport
// failures are wrapped so callers can classify with errors.Is.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrRateLimited       = errors.New("rate limited")
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrJobNotFailed      = errors.New("job not in failed state")
	ErrImageExpired      = errors.New("source image expired")
	ErrNetwork           = errors.New("network failure")
	ErrInternal          = errors.New("internal service error")
)

// APIError is a typed error decoded from a non-2xx service response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
	RetryAfter time.Duration

	marker error
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", msg, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
}

// Unwrap exposes the taxonomy sentinel for errors.Is matching.
func (e *APIError) Unwrap() error {
	if e.marker != nil {
		return e.marker
	}
	return ErrInternal
}

var errorCodeMarkers = map[string]error{
	"INVALID_API_KEY":     ErrAuthentication,
	"NOT_FOUND":           ErrNotFound,
	"VALIDATION_ERROR":    ErrValidation,
	"RATE_LIMIT_EXCEEDED": ErrRateLimited,
	"FILE_TOO_LARGE":      ErrFileTooLarge,
	"UNSUPPORTED_FORMAT":  ErrUnsupportedFormat,
	"JOB_NOT_FAILED":      ErrJobNotFailed,
	"IMAGE_EXPIRED":       ErrImageExpired,
	"INTERNAL_ERROR":      ErrInternal,
}

func markerForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthentication
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusRequestEntityTooLarge:
		return ErrFileTooLarge
	case http.StatusConflict:
		return ErrJobNotFailed
	case http.StatusGone:
		return ErrImageExpired
	default:
		return ErrInternal
	}
}

type errorBody struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details,omitempty"`
	} `json:"error"`
}

// decodeAPIError translates a non-2xx response into an APIError. The
// structured error body is preferred; when absent or unparsable the taxonomy
// kind is inferred from the HTTP status code alone.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Message = parsed.Error.Message
		apiErr.Details = strings.TrimSpace(string(parsed.Error.Details))
		if marker, ok := errorCodeMarkers[parsed.Error.Code]; ok {
			apiErr.marker = marker
		}
	}
	if apiErr.marker == nil {
		apiErr.marker = markerForStatus(resp.StatusCode)
	}
	if apiErr.Message == "" && len(body) > 0 && apiErr.Code == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && seconds > 0 {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
	}
	return apiErr
}

// networkError wraps a transport-level failure (DNS, TLS, timeout) so it is
// never conflated with a server-reported error.
func networkError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrNetwork, operation, err)
}
