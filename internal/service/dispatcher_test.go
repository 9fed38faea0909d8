package service

import (
	"context"
	"errors"
	"testing"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
	"omnichat/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func dispatchFixtures() (*models.Conversation, *models.Integration) {
	conv := &models.Conversation{
		ID:            "conv-1",
		ContactID:     "contact-1",
		IntegrationID: "integ-1",
		Status:        models.ConversationOpen,
	}
	integration := &models.Integration{
		ID:     "integ-1",
		Type:   models.IntegrationEvolution,
		Name:   "Main Line",
		Status: models.IntegrationConnected,
	}
	return conv, integration
}

func TestDispatchTextOnly(t *testing.T) {
	store := &MockStore{}
	hub := &recordingHub{}
	adapter := &fakeAdapter{}
	dispatcher := NewDispatcher(store, hub, quietLogger())
	conv, integration := dispatchFixtures()

	store.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *models.Message) bool {
		return msg.Sender == models.SenderAgent &&
			msg.ConversationID == "conv-1" &&
			msg.ProviderMessageID == "provider-msg-1"
	})).Return(nil)
	store.On("TouchConversation", mock.Anything, "conv-1", 0).Return(nil)

	msg, err := dispatcher.Dispatch(context.Background(), adapter, conv, integration, "5511999990001", "Ola! Como posso ajudar?")
	require.NoError(t, err)
	assert.Equal(t, "Ola! Como posso ajudar?", msg.Text)

	require.Len(t, adapter.sentTexts, 1)
	assert.Equal(t, "5511999990001", adapter.targets[0])
	assert.Empty(t, adapter.sentMedia)

	events := hub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventNewMessage, events[0].Type)
	assert.Equal(t, "conv-1", events[0].ConversationID)
}

func TestDispatchSplitsMarkdownImages(t *testing.T) {
	store := &MockStore{}
	hub := &recordingHub{}
	adapter := &fakeAdapter{}
	dispatcher := NewDispatcher(store, hub, quietLogger())
	conv, integration := dispatchFixtures()

	store.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	store.On("TouchConversation", mock.Anything, "conv-1", 0).Return(nil)

	reply := "Encontrei este: Loft centro, R$ 350.000\n\n![Loft centro](https://cdn.example.com/l1.jpg)"
	msg, err := dispatcher.Dispatch(context.Background(), adapter, conv, integration, "5511999990001", reply)
	require.NoError(t, err)

	require.Len(t, adapter.sentTexts, 1)
	assert.NotContains(t, adapter.sentTexts[0], "![")
	require.Len(t, adapter.sentMedia, 1)
	assert.Equal(t, "https://cdn.example.com/l1.jpg", adapter.sentMedia[0].URL)
	assert.Equal(t, "Loft centro", adapter.sentMedia[0].Caption)

	// The stored message keeps the original markdown.
	assert.Contains(t, msg.Text, "![Loft centro]")
}

func TestDispatchPersistsDespiteSendFailure(t *testing.T) {
	store := &MockStore{}
	hub := &recordingHub{}
	adapter := &fakeAdapter{textErr: apperrors.NewProviderError("evolution", "/message/sendText/main", 500, errors.New("boom"))}
	dispatcher := NewDispatcher(store, hub, quietLogger())
	conv, integration := dispatchFixtures()

	store.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg *models.Message) bool {
		return msg.ProviderMessageID == ""
	})).Return(nil)
	store.On("TouchConversation", mock.Anything, "conv-1", 0).Return(nil)

	msg, err := dispatcher.Dispatch(context.Background(), adapter, conv, integration, "5511999990001", "Ola!")
	require.NoError(t, err)
	assert.Equal(t, "Ola!", msg.Text)

	require.Len(t, hub.Events(), 1)
	store.AssertNotCalled(t, "UpdateIntegrationStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchAuthFailureDisconnectsIntegration(t *testing.T) {
	store := &MockStore{}
	hub := &recordingHub{}
	adapter := &fakeAdapter{textErr: apperrors.NewProviderError("evolution", "/message/sendText/main", 401, errors.New("bad key"))}
	dispatcher := NewDispatcher(store, hub, quietLogger())
	conv, integration := dispatchFixtures()

	store.On("UpdateIntegrationStatus", mock.Anything, "integ-1", models.IntegrationDisconnected).Return(nil)
	store.On("CreateMessage", mock.Anything, mock.Anything).Return(nil)
	store.On("TouchConversation", mock.Anything, "conv-1", 0).Return(nil)

	_, err := dispatcher.Dispatch(context.Background(), adapter, conv, integration, "5511999990001", "Ola!")
	require.NoError(t, err)

	store.AssertCalled(t, "UpdateIntegrationStatus", mock.Anything, "integ-1", models.IntegrationDisconnected)
}

func TestSplitMediaLinks(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantText  string
		wantMedia int
	}{
		{
			name:      "plain text untouched",
			reply:     "Ola! Como posso ajudar?",
			wantText:  "Ola! Como posso ajudar?",
			wantMedia: 0,
		},
		{
			name:      "single image extracted",
			reply:     "Veja: ![Casa](https://cdn.example.com/a.jpg)",
			wantText:  "Veja:",
			wantMedia: 1,
		},
		{
			name:      "multiple images extracted",
			reply:     "![A](https://x.com/a.jpg) e ![B](https://x.com/b.jpg)",
			wantText:  "e",
			wantMedia: 2,
		},
		{
			name:      "empty alt text allowed",
			reply:     "![](https://x.com/a.jpg)",
			wantText:  "",
			wantMedia: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, media := SplitMediaLinks(tt.reply)
			assert.Equal(t, tt.wantText, text)
			assert.Len(t, media, tt.wantMedia)
		})
	}
}
