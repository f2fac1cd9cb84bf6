package nsapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrAuth is returned when the api rejects the credentials of a
	// private request.
	ErrAuth     = errors.New("authentication failed")
	ErrNotFound = errors.New("not found")
)

// APIError is a non-successful response from the api.
type APIError struct {
	StatusCode int
	Message    string
	// RetryAfter is set when the rate limit was exceeded.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api responded with %d", e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter)
	}
	return msg
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// RateLimited reports whether err is a 429 response.
func RateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// longest response message kept in an error
const maxMessage = 200

func responseError(res *resty.Response) error {
	if !res.IsError() && res.StatusCode() < 300 {
		return nil
	}
	msg := strings.TrimSpace(res.String())
	// error pages are html, only the text matters
	if strings.HasPrefix(msg, "<") {
		msg = stripTags(msg)
	}
	msg = truncate(msg, maxMessage)
	err := &APIError{StatusCode: res.StatusCode(), Message: msg}
	if res.StatusCode() == http.StatusTooManyRequests {
		err.RetryAfter = parseRetryAfter(res.Header())
	}
	return err
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func stripTags(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
