// Package service holds the messaging core: webhook processing, identity
// and conversation reconciliation, reply generation and outbound dispatch.
package service

import (
	"context"

	"omnichat/internal/models"
	"omnichat/internal/realtime"
	"omnichat/pkg/channel"
)

// Store is the persistence surface the services depend on. *database.Database
// satisfies it; tests substitute mocks.
type Store interface {
	CreateContact(ctx context.Context, contact *models.Contact) error
	FindContactByPlatformID(ctx context.Context, platform models.Platform, platformID string) (*models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) error

	CreateConversation(ctx context.Context, conv *models.Conversation) error
	FindOpenConversation(ctx context.Context, contactID, integrationID string) (*models.Conversation, error)
	UpdateConversationAgent(ctx context.Context, id string, agentID *string) error
	TouchConversation(ctx context.Context, id string, unreadDelta int) error

	CreateMessage(ctx context.Context, msg *models.Message) error
	FindMessageByProviderID(ctx context.Context, providerMessageID string) (*models.Message, error)
	DeleteMessage(ctx context.Context, id string) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)

	GetIntegration(ctx context.Context, id string) (*models.Integration, error)
	FindIntegrationsByType(ctx context.Context, typ models.IntegrationType) ([]models.Integration, error)
	FindIntegrationsByTypeAndStatus(ctx context.Context, typ models.IntegrationType, status models.IntegrationStatus) ([]models.Integration, error)
	UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus) error

	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	GetGlobalSetting(ctx context.Context, key string) (string, error)
}

// Broadcaster pushes events to connected realtime clients.
type Broadcaster interface {
	Broadcast(event realtime.Event)
}

// ReplyGenerator produces the agent's answer to a conversation history.
type ReplyGenerator interface {
	Reply(ctx context.Context, agent *models.Agent, apiKey string, history []models.Message) (string, error)
}

// AdapterFactory builds a provider client for an integration.
type AdapterFactory func(integration *models.Integration) (channel.Adapter, error)
