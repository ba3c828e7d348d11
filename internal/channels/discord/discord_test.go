package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solid-gateway/internal/config"
)

func TestConsoleChannel(t *testing.T) {
	var out bytes.Buffer
	channel := NewConsole(&out)

	require.NoError(t, channel.Send(context.Background(), "Hello everyone!"))
	assert.Equal(t, "Discord: Hello everyone!\n", out.String())
	assert.Equal(t, "Discord", channel.Type())
}

func TestWebhookChannel_Send(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	channel := NewWebhook(config.Discord{WebhookURL: server.URL, Username: "gateway"})
	require.NoError(t, channel.Send(context.Background(), "Hello everyone!"))

	assert.Equal(t, "Hello everyone!", received.Content)
	assert.Equal(t, "gateway", received.Username)
	assert.Equal(t, "Discord", channel.Type())
}

func TestWebhookChannel_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := NewWebhook(config.Discord{WebhookURL: server.URL}).Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestWebhookChannel_RequiresURL(t *testing.T) {
	err := NewWebhook(config.Discord{}).Send(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoWebhookURL)
}

func TestNewWebhook_DefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewWebhook(config.Discord{}).client.Timeout)
}
