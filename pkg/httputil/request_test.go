package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"nombre"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nombre":"Aire"}`))
	require.NoError(t, ParseJSON(r, &dest))
	assert.Equal(t, "Aire", dest.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{bad`))
	assert.Error(t, ParseJSON(r, &dest))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err := ParseJSON(r, &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestParseJSONOrErrorTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nombre":"`+strings.Repeat("a", 100)+`"}`))
	r.Body = http.MaxBytesReader(w, r.Body, 16)

	var dest map[string]string
	ok := ParseJSONOrError(w, r, &dest)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestParsePathInt64(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/filtros/12", nil), map[string]string{"id": "12"})
	id, err := ParsePathInt64(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/filtros/x", nil), map[string]string{"id": "x"})
	w := httptest.NewRecorder()
	_, ok := ParsePathInt64OrError(w, r, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err = ParsePathInt64(httptest.NewRequest(http.MethodGet, "/", nil), "id")
	assert.Error(t, err)
}

func TestParseQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/filtros/?skip=5&limit=abc&tipo=filtro", nil)

	skip, err := ParseQueryInt(r, "skip", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, skip)

	_, err = ParseQueryInt(r, "limit", 100)
	assert.Error(t, err)

	id, err := ParseQueryInt64(r, "categoria_id", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), id)

	assert.Equal(t, "filtro", ParseQueryString(r, "tipo", ""))
	assert.Equal(t, "x", ParseQueryString(r, "q", "x"))
}
