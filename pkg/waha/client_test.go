package waha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/pkg/channel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-api-key", "default", 5*time.Second)
}

func TestSendText(t *testing.T) {
	var gotPayload map[string]interface{}

	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sendText", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "waha-msg-1"})
	})

	result, err := client.SendText(context.Background(), "5511999990001@c.us", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "waha-msg-1", result.MessageID)
	assert.Equal(t, "5511999990001@c.us", gotPayload["chatId"])
	assert.Equal(t, "default", gotPayload["session"])
}

func TestSendMediaEndpointSelection(t *testing.T) {
	tests := []struct {
		name     string
		media    string
		expected string
	}{
		{"image goes to sendImage", "image", "/api/sendImage"},
		{"voice goes to sendVoice", "voice", "/api/sendVoice"},
		{"audio goes to sendVoice", "audio", "/api/sendVoice"},
		{"video goes to sendVideo", "video", "/api/sendVideo"},
		{"document falls back to sendFile", "document", "/api/sendFile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "waha-msg-2"})
			})

			result, err := client.SendMedia(context.Background(), "5511999990001@c.us", channel.MediaItem{
				Type: tt.media,
				URL:  "https://cdn.example.com/file",
			})
			require.NoError(t, err)
			assert.Equal(t, "waha-msg-2", result.MessageID)
			assert.Equal(t, tt.expected, gotPath)
		})
	}
}

func TestSendTextUnauthorized(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.SendText(context.Background(), "5511999990001@c.us", "Hello")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthFailure(err))
}

func TestFetchConnectionState(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected channel.ConnectionState
	}{
		{"working maps to connected", "WORKING", channel.StateConnected},
		{"scan qr maps to connecting", "SCAN_QR_CODE", channel.StateConnecting},
		{"stopped maps to disconnected", "STOPPED", channel.StateDisconnected},
		{"failed maps to disconnected", "FAILED", channel.StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/sessions/default", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"name":   "default",
					"status": tt.status,
				})
			})

			state, err := client.FetchConnectionState(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, state)
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	var calls []string

	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{}"))
	})

	ctx := context.Background()
	require.NoError(t, client.CreateSession(ctx))
	require.NoError(t, client.SetCallbackURL(ctx, "https://crm.example.com/webhook/waha"))
	require.NoError(t, client.DeleteSession(ctx))

	assert.Equal(t, []string{
		"POST /api/sessions",
		"PUT /api/sessions/default",
		"DELETE /api/sessions/default",
	}, calls)
}
