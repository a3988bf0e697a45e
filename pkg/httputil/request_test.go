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

type updateBody struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description"`
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"displayName":"Courier","description":"d"}`},
		{name: "malformed", body: `{"displayName":`, wantErr: "invalid JSON"},
		{name: "unknown field", body: `{"name":"x"}`, wantErr: "unknown field"},
		{name: "empty", body: ``, wantErr: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/role/1", strings.NewReader(tt.body))
			var dest updateBody
			err := ParseJSON(req, &dest)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Courier", dest.DisplayName)
		})
	}
}

func TestParseJSONOrError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/role", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	var dest updateBody

	assert.False(t, ParseJSONOrError(w, req, &dest))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/role/r1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "r1"})

	val, err := ParsePathString(req, "id")
	assert.NoError(t, err)
	assert.Equal(t, "r1", val)

	_, err = ParsePathString(req, "userId")
	assert.Error(t, err)

	w := httptest.NewRecorder()
	_, ok := ParsePathStringOrError(w, req, "userId")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/role/r1/users?page=5&pageSize=abc", nil)

	val, err := ParseQueryInt(req, "page", 1)
	assert.NoError(t, err)
	assert.Equal(t, 5, val)

	val, err = ParseQueryInt(req, "limit", 20)
	assert.NoError(t, err)
	assert.Equal(t, 20, val)

	_, err = ParseQueryInt(req, "pageSize", 10)
	assert.Error(t, err)
}

func TestParseQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?search=%20al%20&empty=", nil)
	assert.Equal(t, "al", ParseQueryString(req, "search", ""))
	assert.Equal(t, "d", ParseQueryString(req, "empty", "d"))
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "  ", "displayName"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "displayName is required")

	assert.True(t, RequireNonEmpty(httptest.NewRecorder(), "x", "displayName"))
}
