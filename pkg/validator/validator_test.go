package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reviewRequest struct {
	ReviewerName string `json:"reviewer_name" validate:"notblank,max=200"`
	Seller       string `json:"seller" validate:"required"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Recommend    string `json:"recommend" validate:"yesno"`
	Internal     string `json:"-" validate:"omitempty,oneof=a b"`
}

func validRequest() reviewRequest {
	return reviewRequest{ReviewerName: "Alice", Seller: "Acme", Rating: 5, Recommend: "Yes"}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	return valErr.Fields()
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(validRequest()))
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	r := validRequest()
	r.Seller = ""

	fields := fieldsOf(t, Validate(r))
	assert.Equal(t, "is required", fields["seller"])
}

func TestValidate_NotBlank(t *testing.T) {
	r := validRequest()
	r.ReviewerName = "   "

	fields := fieldsOf(t, Validate(r))
	assert.Equal(t, "is required", fields["reviewer_name"])
}

func TestValidate_RatingRange(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		r := validRequest()
		r.Rating = rating
		fields := fieldsOf(t, Validate(r))
		assert.Contains(t, fields, "rating", "rating %d", rating)
	}
}

func TestValidate_YesNo(t *testing.T) {
	for _, ok := range []string{"Yes", "no", " YES "} {
		r := validRequest()
		r.Recommend = ok
		assert.NoError(t, Validate(r), ok)
	}

	r := validRequest()
	r.Recommend = "maybe"
	fields := fieldsOf(t, Validate(r))
	assert.Equal(t, `must be "Yes" or "No"`, fields["recommend"])
}

func TestValidate_FallsBackToStructFieldName(t *testing.T) {
	r := validRequest()
	r.Internal = "c"

	fields := fieldsOf(t, Validate(r))
	assert.Contains(t, fields["Internal"], "one of")
}

func TestValidationError_ErrorString(t *testing.T) {
	r := validRequest()
	r.Rating = 9

	err := Validate(r)
	require.Error(t, err)
	assert.Equal(t, "field 'rating' must be at most 5", err.Error())
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"reviewer_name":"Alice","seller":"Acme","rating":4,"recommend":"No"}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var r reviewRequest
	require.NoError(t, DecodeAndValidate(req, &r))
	assert.Equal(t, "Alice", r.ReviewerName)
	assert.Equal(t, 4, r.Rating)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var r reviewRequest
	err := DecodeAndValidate(req, &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	body := `{"reviewer_name":"Alice","seller":"Acme","rating":4,"recommend":"No","extra":1}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var r reviewRequest
	err := DecodeAndValidate(req, &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"reviewer_name":"","seller":"Acme","rating":4,"recommend":"No"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var r reviewRequest
	err := DecodeAndValidate(req, &r)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
