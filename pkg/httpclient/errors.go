package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 1 << 20

// StatusError describes a non-2xx response from a downstream service.
type StatusError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s returned status %d", e.Service, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return IsRetryableStatus(e.StatusCode) || e.StatusCode == http.StatusTooManyRequests
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// returns it as a *StatusError. Structured bodies of the shapes
// {"error":{"code","message"}}, {"error":"..."} and {"message":"..."} are
// understood; anything else is kept verbatim as the message.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	statusErr := &StatusError{Service: serviceName, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		statusErr.Message = fmt.Sprintf("failed to read body: %v", err)
		return statusErr
	}

	statusErr.Code, statusErr.Message = parseErrorBody(body)
	return statusErr
}

func parseErrorBody(body []byte) (code, message string) {
	if !gjson.ValidBytes(body) {
		return "", strings.TrimSpace(string(body))
	}

	parsed := gjson.ParseBytes(body)
	errField := parsed.Get("error")
	switch {
	case errField.IsObject():
		return errField.Get("code").String(), errField.Get("message").String()
	case errField.Type == gjson.String:
		return "", errField.String()
	case parsed.Get("message").Exists():
		return parsed.Get("code").String(), parsed.Get("message").String()
	default:
		return "", strings.TrimSpace(string(body))
	}
}
