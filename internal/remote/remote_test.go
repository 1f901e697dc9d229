package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/functions/v1/echo", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "key-1", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["say"]})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "key-1")
	var out struct{ Echo string }
	require.NoError(t, c.Call(t.Context(), "echo", map[string]string{"say": "hi"}, &out))
	assert.Equal(t, "hi", out.Echo)
}

func TestCall_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := New(srv.URL, "key").Call(t.Context(), "ask", struct{}{}, nil)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")

	err = New("", "key").Call(t.Context(), "ask", struct{}{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	err = New(srv.URL, "").Call(t.Context(), "ask", struct{}{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFunctionURL(t *testing.T) {
	c := New("https://example.supabase.co/", "k")
	assert.Equal(t, "https://example.supabase.co/functions/v1/ask-cella", c.FunctionURL("ask-cella"))
}
