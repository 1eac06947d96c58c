package httpclient

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "structured error object",
			status:      http.StatusServiceUnavailable,
			body:        `{"error":{"code":"MODEL_LOADING","message":"warming up"}}`,
			wantCode:    "MODEL_LOADING",
			wantMessage: "warming up",
		},
		{
			name:        "error string",
			status:      http.StatusBadRequest,
			body:        `{"error":"sellerId is required"}`,
			wantMessage: "sellerId is required",
		},
		{
			name:        "message with code",
			status:      http.StatusInternalServerError,
			body:        `{"code":"E42","message":"boom"}`,
			wantCode:    "E42",
			wantMessage: "boom",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream timed out\n",
			wantMessage: "upstream timed out",
		},
		{
			name:        "unrecognised json kept verbatim",
			status:      http.StatusInternalServerError,
			body:        `{"detail":"x"}`,
			wantMessage: `{"detail":"x"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, tt.body), "trust-scorer")

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, "trust-scorer", statusErr.Service)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantCode, statusErr.Code)
			assert.Equal(t, tt.wantMessage, statusErr.Message)
		})
	}
}

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{Service: "trust-scorer", StatusCode: 503, Code: "DOWN", Message: "maintenance"}
	assert.Equal(t, "trust-scorer returned status 503 (DOWN): maintenance", err.Error())

	bare := &StatusError{Service: "trust-scorer", StatusCode: 500}
	assert.Equal(t, "trust-scorer returned status 500", bare.Error())
}

func TestStatusError_Temporary(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 503}).Temporary())
	assert.True(t, (&StatusError{StatusCode: 429}).Temporary())
	assert.False(t, (&StatusError{StatusCode: 501}).Temporary())
	assert.False(t, (&StatusError{StatusCode: 400}).Temporary())
}
