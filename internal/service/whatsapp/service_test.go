package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/flockboard/internal/config"
	"github.com/mamadbah2/flockboard/internal/domain/models"
	"github.com/mamadbah2/flockboard/internal/service/commands"
	"github.com/mamadbah2/flockboard/internal/service/logs"
	client "github.com/mamadbah2/flockboard/pkg/clients/whatsapp"
)

type recordingClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (c *recordingClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	c.sent = append(c.sent, req)
	if c.err != nil {
		return nil, c.err
	}
	return &client.SendTextMessageResponse{Messages: []client.MessageID{{ID: "wamid"}}}, nil
}

type scriptedDispatcher struct {
	reply string
	err   error
	got   []models.Command
}

func (d *scriptedDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	d.got = append(d.got, cmd)
	return d.reply, d.err
}

func textPayload(from string, bodies ...string) models.WebhookPayload {
	var messages []models.InboundMessage
	for i, body := range bodies {
		messages = append(messages, models.InboundMessage{
			From: from,
			ID:   fmt.Sprintf("m%d", i),
			Type: "text",
			Text: &models.TextContent{Body: body},
		})
	}
	return models.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{{Value: models.WebhookValue{Messages: messages}}},
		}},
	}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, &recordingClient{}, &scriptedDispatcher{}, nil)

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", challenge)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "42")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
	_, err = svc.VerifyWebhookToken("unsubscribe", "secret", "42")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
	_, err = svc.VerifyWebhookToken("", "", "42")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestHandleWebhookRepliesToSender(t *testing.T) {
	wa := &recordingClient{}
	dispatcher := &scriptedDispatcher{reply: "Day 3 logged."}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, dispatcher, nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("2217", "/log 1 10 80")))

	require.Len(t, dispatcher.got, 1)
	assert.Equal(t, models.CommandLog, dispatcher.got[0].Type)
	require.Len(t, wa.sent, 1)
	assert.Equal(t, "2217", wa.sent[0].To)
	assert.Equal(t, "Day 3 logged.", wa.sent[0].Body)
}

func TestHandleWebhookTurnsErrorsIntoReplies(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"unknown":   {err: commands.ErrUnsupportedCommand, want: "Unknown command.\n" + commands.Help()},
		"duplicate": {err: fmt.Errorf("%w: day 3", logs.ErrDuplicateDay), want: "Not saved: daily log already recorded for that day: day 3"},
		"internal":  {err: errors.New("mongo down"), want: "Something went wrong, please try again later."},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			wa := &recordingClient{}
			svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, &scriptedDispatcher{err: tc.err}, nil)

			require.NoError(t, svc.HandleWebhook(context.Background(), textPayload("2217", "/anything")))
			require.Len(t, wa.sent, 1)
			assert.Equal(t, tc.want, wa.sent[0].Body)
		})
	}
}

func TestHandleWebhookSkipsNonText(t *testing.T) {
	wa := &recordingClient{}
	dispatcher := &scriptedDispatcher{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, dispatcher, nil)

	payload := textPayload("2217")
	payload.Entry[0].Changes[0].Value.Messages = []models.InboundMessage{{From: "2217", Type: "image"}}

	require.NoError(t, svc.HandleWebhook(context.Background(), payload))
	assert.Empty(t, dispatcher.got)
	assert.Empty(t, wa.sent)
}

func TestHandleWebhookReturnsFirstSendError(t *testing.T) {
	sendErr := errors.New("network")
	wa := &recordingClient{err: sendErr}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, &scriptedDispatcher{reply: "ok"}, nil)

	err := svc.HandleWebhook(context.Background(), textPayload("2217", "/help", "/stats"))
	assert.ErrorIs(t, err, sendErr)
	assert.Len(t, wa.sent, 2)
}

func TestSendOutbound(t *testing.T) {
	wa := &recordingClient{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, wa, nil, nil)

	require.NoError(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi", PreviewURL: true}))
	require.NoError(t, svc.Notify(context.Background(), "2", "report"))

	require.Len(t, wa.sent, 2)
	assert.True(t, wa.sent[0].PreviewURL)
	assert.Equal(t, "report", wa.sent[1].Body)
}

func TestSessionManager(t *testing.T) {
	sm := NewSessionManager()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	_, ok := sm.ActiveFlock("u1")
	assert.False(t, ok)

	sm.SetActiveFlock("u1", "f1")
	id, ok := sm.ActiveFlock("u1")
	assert.True(t, ok)
	assert.Equal(t, "f1", id)

	now = now.Add(sessionTTL + time.Minute)
	_, ok = sm.ActiveFlock("u1")
	assert.False(t, ok)

	sm.SetActiveFlock("u1", "f2")
	sm.ClearSession("u1")
	_, ok = sm.ActiveFlock("u1")
	assert.False(t, ok)
}
