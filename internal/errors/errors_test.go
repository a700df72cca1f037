package errors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorImplementsError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
}

func TestAPIErrorRenderSetsStatus(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	require.NoError(t, render.Render(w, r, ErrRunNotFound))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_NOT_FOUND")
}

func TestErrValidationCarriesField(t *testing.T) {
	err := ErrValidation("start_date", "must be before end_date")
	details, ok := err.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "start_date", details.Field)
}

func TestErrorResponseEnvelope(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	require.NoError(t, render.Render(w, r, NewErrorResponse(ErrArchiveTooLarge)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(assert.AnError)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, assert.AnError.Error(), err.Details)
}
