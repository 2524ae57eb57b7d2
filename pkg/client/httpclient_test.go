package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpClient_POSTSendsJSONAndBearer(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"wamid.1"}`))
	}))
	defer srv.Close()

	c := NewHttpClient(srv.URL, time.Second).WithBearer("secret")
	resp, err := c.POST(context.Background(), "/messages", map[string]string{"to": "+51999999999"})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "+51999999999", gotBody["to"])
}

func TestHttpClient_RespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHttpClient(srv.URL, time.Minute).GET(ctx, "/slow")
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"not found"}`, "not found"},
		{"string error", `{"error":"bad token"}`, "bad token"},
		{"graph api error", `{"error":{"message":"Invalid OAuth access token"}}`, "Invalid OAuth access token"},
		{"not json", `<html>`, "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: 502, Body: []byte(tt.body)}
			assert.Equal(t, tt.want, ErrorMessage(resp))
		})
	}
}
