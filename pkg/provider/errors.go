package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyResponse is returned when a provider answers successfully but the
// payload carries no usable content.
var ErrEmptyResponse = errors.New("provider: empty response")

// StatusError reports a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	// RetryAfter is the server-requested wait before retrying. Zero when the
	// header was absent or unparseable.
	RetryAfter time.Duration
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, msg)
}

// RateLimited reports whether the error is an HTTP 429.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err wraps a [StatusError] with status 429.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.RateLimited()
}

// RetryAfterOf returns the Retry-After hint carried by err, if any.
func RetryAfterOf(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header value given either as
// delta-seconds or as an HTTP-date. Dates in the past and malformed values
// yield (0, false).
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := when.Sub(now)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

// maxErrorBody bounds how much of an error body is kept in StatusError.Message.
const maxErrorBody = 512

// CheckResponse returns nil for 2xx responses. Otherwise it drains up to a
// small prefix of the body and returns a *StatusError describing the failure.
// The caller still owns resp.Body and must close it.
func CheckResponse(name string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{
		Provider:   name,
		StatusCode: resp.StatusCode,
		Message:    Snippet(string(body)),
	}
	if d, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
		se.RetryAfter = d
	}
	return se
}

// Snippet collapses whitespace in s and truncates it for log and error
// messages.
func Snippet(s string) string {
	clean := strings.Join(strings.Fields(s), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
