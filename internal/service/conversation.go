package service

import (
	"context"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ConversationService reconciles the single-open-conversation rule. The
// database enforces the invariant with a partial unique index; this service
// turns the resulting conflicts into a lost-race retry.
type ConversationService struct {
	store  Store
	logger *logrus.Logger
}

func NewConversationService(store Store, logger *logrus.Logger) *ConversationService {
	return &ConversationService{store: store, logger: logger}
}

// Reconcile returns the open conversation for the contact on this
// integration, creating one when none exists. When the integration's agent
// assignment changed since the conversation opened, the conversation is
// re-pointed at the new agent.
func (s *ConversationService) Reconcile(ctx context.Context, contactID, integrationID string, platform models.Platform, desiredAgentID *string) (*models.Conversation, error) {
	conv, err := s.store.FindOpenConversation(ctx, contactID, integrationID)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		if conv.AgentDrifted(desiredAgentID) {
			if err := s.store.UpdateConversationAgent(ctx, conv.ID, desiredAgentID); err != nil {
				return nil, err
			}
			conv.AgentID = desiredAgentID
			s.logger.WithFields(logrus.Fields{
				"conversationId": conv.ID,
			}).Info("Conversation re-pointed to current agent")
		}
		return conv, nil
	}

	conv = &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contactID,
		IntegrationID: integrationID,
		Platform:      platform,
		Status:        models.ConversationOpen,
		AgentID:       desiredAgentID,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		if !apperrors.IsConflict(err) {
			return nil, err
		}
		// A concurrent delivery won the race; adopt its conversation.
		existing, findErr := s.store.FindOpenConversation(ctx, contactID, integrationID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}

	return conv, nil
}
