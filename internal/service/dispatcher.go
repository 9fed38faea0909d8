package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
	"omnichat/internal/realtime"
	"omnichat/pkg/channel"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var markdownImagePattern = regexp.MustCompile(`!\[([^\]]*)\]\((https?://[^)\s]+)\)`)

// Dispatcher delivers an agent reply to the end user and records it. The
// conversation record is the source of truth: the message is persisted and
// broadcast even when provider delivery fails, so the dashboard always shows
// what the agent said.
type Dispatcher struct {
	store  Store
	hub    Broadcaster
	logger *logrus.Logger
}

func NewDispatcher(store Store, hub Broadcaster, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{store: store, hub: hub, logger: logger}
}

// Dispatch sends the reply text followed by each extracted image, then
// persists the agent message. target is the provider-native recipient
// address.
func (d *Dispatcher) Dispatch(ctx context.Context, adapter channel.Adapter, conv *models.Conversation, integration *models.Integration, target, reply string) (*models.Message, error) {
	text, media := SplitMediaLinks(reply)

	var providerMessageID string
	var sendErr error

	if text != "" {
		result, err := adapter.SendText(ctx, target, text)
		if err != nil {
			sendErr = err
		} else if result != nil {
			providerMessageID = result.MessageID
		}
	}

	for _, item := range media {
		result, err := adapter.SendMedia(ctx, target, item)
		if err != nil {
			if sendErr == nil {
				sendErr = err
			}
			continue
		}
		if providerMessageID == "" && result != nil {
			providerMessageID = result.MessageID
		}
	}

	if sendErr != nil {
		d.onSendFailure(ctx, integration, sendErr)
	}

	msg := &models.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		Sender:            models.SenderAgent,
		Text:              reply,
		ProviderMessageID: providerMessageID,
		CreatedAt:         time.Now().UTC(),
	}
	if err := d.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	if err := d.store.TouchConversation(ctx, conv.ID, 0); err != nil {
		d.logger.WithError(err).WithField("conversationId", conv.ID).Warn("Failed to touch conversation")
	}

	d.hub.Broadcast(realtime.Event{
		Type:           realtime.EventNewMessage,
		ConversationID: conv.ID,
		IntegrationID:  integration.ID,
		Message:        msg,
	})

	return msg, nil
}

// onSendFailure is the single place outbound delivery errors are classified.
// An authentication failure means the provider credentials are dead, so the
// integration is flipped to DISCONNECTED until an operator intervenes.
func (d *Dispatcher) onSendFailure(ctx context.Context, integration *models.Integration, err error) {
	fields := logrus.Fields{
		"integrationId": integration.ID,
		"provider":      integration.Type,
	}

	if apperrors.IsAuthFailure(err) {
		if updateErr := d.store.UpdateIntegrationStatus(ctx, integration.ID, models.IntegrationDisconnected); updateErr != nil {
			d.logger.WithError(updateErr).WithFields(fields).Error("Failed to mark integration disconnected")
		} else {
			d.logger.WithError(err).WithFields(fields).Warn("Provider rejected credentials, integration disconnected")
		}
		return
	}

	d.logger.WithError(err).WithFields(fields).Error("Failed to deliver agent reply")
}

// SplitMediaLinks strips markdown images out of the reply and returns them
// as sendable media items, keeping the surrounding prose intact.
func SplitMediaLinks(reply string) (string, []channel.MediaItem) {
	matches := markdownImagePattern.FindAllStringSubmatch(reply, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(reply), nil
	}

	media := make([]channel.MediaItem, 0, len(matches))
	for _, match := range matches {
		media = append(media, channel.MediaItem{
			Type:    "image",
			URL:     match[2],
			Caption: match[1],
		})
	}

	text := markdownImagePattern.ReplaceAllString(reply, "")
	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), media
}

var blankRunPattern = regexp.MustCompile(`\n{3,}`)
