package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	utils.Logger = zap.NewNop()
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:  5 * time.Second,
		DialTimeout:     2 * time.Second,
		MaxConnsPerHost: 4,
	}
}

func TestProbe_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "abc", r.URL.Query().Get("key"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer ts.Close()

	probes := NewProbeClient(testConfig())
	resp, err := probes.Probe(context.Background(), ProbeRequest{
		Method:  http.MethodGet,
		URL:     ts.URL,
		Headers: map[string]string{"Authorization": "Bearer sk-test"},
		Query:   map[string]string{"key": "abc"},
		Timeout: time.Second,
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"data":[]}`, resp.Body)
	assert.Greater(t, resp.Duration, time.Duration(0))
}

func TestProbe_BodyForwardedAsJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-3.5-turbo", payload["model"])
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	probes := NewProbeClient(testConfig())
	resp, err := probes.Probe(context.Background(), ProbeRequest{
		Method:  http.MethodPost,
		URL:     ts.URL,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    map[string]any{"model": "gpt-3.5-turbo", "max_tokens": 1},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProbe_ErrorStatusesAreData(t *testing.T) {
	for _, status := range []int{401, 403, 429, 500} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
		}))

		probes := NewProbeClient(testConfig())
		resp, err := probes.Probe(context.Background(), ProbeRequest{
			Method: http.MethodGet,
			URL:    ts.URL,
		})
		ts.Close()

		require.NoError(t, err, "status %d must not be a transport error", status)
		assert.Equal(t, status, resp.StatusCode)
		assert.Contains(t, resp.Body, "nope")
	}
}

func TestProbe_TimeoutKind(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer ts.Close()

	probes := NewProbeClient(testConfig())
	_, err := probes.Probe(context.Background(), ProbeRequest{
		Method:  http.MethodGet,
		URL:     ts.URL,
		Timeout: 50 * time.Millisecond,
	})

	var perr *ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrKindTimeout, perr.Kind)
}

func TestProbe_ConnectionKind(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	probes := NewProbeClient(testConfig())
	_, err := probes.Probe(context.Background(), ProbeRequest{
		Method: http.MethodGet,
		URL:    url,
	})

	var perr *ProbeError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrKindConnection, perr.Kind)
}

func TestProbe_CanceledContextIsNotAProbeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probes := NewProbeClient(testConfig())
	_, err := probes.Probe(ctx, ProbeRequest{Method: http.MethodGet, URL: ts.URL})

	assert.ErrorIs(t, err, context.Canceled)
	var perr *ProbeError
	assert.False(t, errors.As(err, &perr))
}

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"deadline exceeded", context.DeadlineExceeded, ErrKindTimeout},
		{"generic error", errors.New("tls: handshake failure"), ErrKindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := classifyTransportError(tt.err)
			assert.Equal(t, tt.expected, perr.Kind)
		})
	}
}
