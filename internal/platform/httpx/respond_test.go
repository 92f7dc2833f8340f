package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fields map[string]string

func (f fields) Error() string                { return "bad fields" }
func (f fields) FieldMap() map[string]string { return f }

func TestRespondErrorDefaults(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("wrap: %w", ErrNotFound))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	RespondError(rr, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "boom")
}

func TestRespondErrorCustomMappingWithFields(t *testing.T) {
	errBad := errors.New("bad input")
	err := fmt.Errorf("%w: %w", errBad, fields{"email": "email"})

	rr := httptest.NewRecorder()
	RespondError(rr, err, Mapping{Target: errBad, Status: http.StatusUnprocessableEntity, Title: "Bad"})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var p ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Equal(t, "Bad", p.Title)
	assert.Equal(t, "email", p.Errors["email"])
}

func TestDecodeJSON(t *testing.T) {
	var target struct{ Name string }
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":"x"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &target))
	assert.Equal(t, "x", target.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &target), ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), req, &target), ErrValidation)
}
