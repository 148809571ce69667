package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/flockboard/internal/config"
)

func newTestClient(url string) *APIClient {
	return NewClient(config.WhatsAppConfig{
		AccessToken:   "token",
		PhoneNumberID: "12345",
		BaseURL:       url + "/",
		APIVersion:    "v21.0",
	})
}

func TestSendTextMessage(t *testing.T) {
	var got textMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).SendTextMessage(context.Background(), SendTextMessageRequest{To: "221770000000", Body: "hello"})
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "221770000000", got.To)
	assert.Equal(t, "hello", got.Text.Body)
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","type":"OAuthException","code":100,"fbtrace_id":"abc"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SendTextMessage(context.Background(), SendTextMessageRequest{To: "1", Body: "x"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, 100, apiErr.Code)
	assert.Equal(t, "Invalid parameter", apiErr.Message)
}

func TestSendTextMessageRequiresRecipient(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1").SendTextMessage(context.Background(), SendTextMessageRequest{Body: "x"})
	assert.ErrorContains(t, err, "recipient")
}
