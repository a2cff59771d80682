package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL)
	require.NoError(t, err)
	return client
}

func TestNewClientRejectsRelativeBase(t *testing.T) {
	_, err := NewClient("/api")
	assert.Error(t, err)
}

func TestURLJoinsBaseAndEndpoint(t *testing.T) {
	client, err := NewClient("http://localhost:8000")
	require.NoError(t, err)

	got, err := client.URL("/api/v1/repos", Params{"limit": 20, "offset": 0})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1/repos?limit=20&offset=0", got)

	got, err = client.URL(Path("/api/v1/repos/analyze", "a/b"), nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api/v1/repos/analyze/a%2Fb", got)
}

func TestBearerHeaderOnlyWithCredential(t *testing.T) {
	var headers []http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Clone())
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := Get[json.RawMessage](context.Background(), client, "/x", nil, "")
	require.NoError(t, err)
	_, err = Get[json.RawMessage](context.Background(), client, "/x", nil, "secret-token")
	require.NoError(t, err)

	require.Len(t, headers, 2)
	assert.Empty(t, headers[0].Get("Authorization"))
	assert.Equal(t, "Bearer secret-token", headers[1].Get("Authorization"))
	assert.Equal(t, "application/json", headers[1].Get("Content-Type"))
}

func TestPostSendsJSONBody(t *testing.T) {
	type payload struct {
		Label string `json:"label"`
	}
	var received payload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"label":"ok"},"message":"created"}`))
	})

	out, err := Post[Envelope[payload]](context.Background(), client, "/api/v1/git_tokens", payload{Label: "ci"}, "t")
	require.NoError(t, err)
	assert.Equal(t, "ci", received.Label)
	assert.Equal(t, "ok", out.Data.Label)
	assert.Equal(t, "created", out.Message)
}

func TestNoContentYieldsZeroValue(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusResetContent} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		out, err := Delete[map[string]any](context.Background(), client, "/api/v1/repos/1", "t")
		require.NoError(t, err)
		assert.Nil(t, out)
	}
}

func TestEmptyOKBodyYieldsZeroValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	out, err := Get[Envelope[string]](context.Background(), client, "/x", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "", out.Data)
}

func TestStatusErrorFormat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"token expired"}`, http.StatusUnauthorized)
	})

	_, err := Get[json.RawMessage](context.Background(), client, "/api/v1/repos", nil, "expired")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "API error (401): Unauthorized", err.Error())
	assert.Contains(t, statusErr.Body, "token expired")
	assert.True(t, IsUnauthorized(err))
}

func TestTransportFailureIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(base)
	require.NoError(t, err)

	_, err = Get[json.RawMessage](context.Background(), client, "/api/v1/repos", nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, 0, StatusCode(err))
}

func TestInvalidJSONIsDecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	_, err := Get[map[string]any](context.Background(), client, "/x", nil, "")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestCancelledContextAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get[json.RawMessage](ctx, client, "/slow", nil, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	notFound := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	assert.NoError(t, notFound.Ping(context.Background()))

	broken := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	assert.Error(t, broken.Ping(context.Background()))
}
