package service

import (
	"context"
	"errors"
	"os"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/identity"
	"omnichat/internal/llm"
	"omnichat/internal/models"
	"omnichat/internal/realtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const historyWindow = 50

// Gateway is the webhook entry point. It owns the full inbound pipeline:
// instance matching, identity reconciliation, contact and conversation
// upserts, message persistence, realtime fan-out and the AI reply path.
type Gateway struct {
	store         Store
	resolver      *identity.Resolver
	conversations *ConversationService
	generator     ReplyGenerator
	dispatcher    *Dispatcher
	registry      *AdapterRegistry
	hub           Broadcaster
	logger        *logrus.Logger
}

func NewGateway(store Store, resolver *identity.Resolver, conversations *ConversationService,
	generator ReplyGenerator, dispatcher *Dispatcher, registry *AdapterRegistry,
	hub Broadcaster, logger *logrus.Logger) *Gateway {
	return &Gateway{
		store:         store,
		resolver:      resolver,
		conversations: conversations,
		generator:     generator,
		dispatcher:    dispatcher,
		registry:      registry,
		hub:           hub,
		logger:        logger,
	}
}

// ProcessEvent handles one webhook delivery. The returned result is always
// a valid acknowledgment; a non-nil error means the provider should retry.
func (g *Gateway) ProcessEvent(ctx context.Context, typ models.IntegrationType, event *models.InboundEvent) (*models.WebhookResult, error) {
	switch event.Type {
	case models.EventMessagesUpsert:
		return g.handleUpsert(ctx, typ, event)
	case models.EventMessagesDelete:
		return g.handleDelete(ctx, event)
	case models.EventConnection:
		return g.handleConnectionUpdate(ctx, typ, event)
	default:
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "unsupported event type"}, nil
	}
}

func (g *Gateway) handleUpsert(ctx context.Context, typ models.IntegrationType, event *models.InboundEvent) (*models.WebhookResult, error) {
	integration, err := g.findConnectedIntegration(ctx, typ, event.Instance)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		g.logger.WithFields(logrus.Fields{
			"provider": typ,
			"instance": event.Instance,
		}).Warn("Webhook for unknown or disconnected instance")
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "unknown instance"}, nil
	}

	agent, err := g.loadAgent(ctx, integration)
	if err != nil {
		return nil, err
	}

	key := event.Data.Key
	if models.IsGroupJID(key.RemoteJID) && (agent == nil || !agent.ReplyInGroups) {
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "group chat"}, nil
	}

	text, media := models.ExtractContent(event.Data.Message)
	if text == "" && media == nil {
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "unsupported message content"}, nil
	}

	ident, err := g.resolver.Resolve(key.RemoteJID, key.RemoteJIDAlt)
	phone := ident.Phone
	if err != nil {
		if !errors.Is(err, identity.ErrUnresolved) {
			return nil, err
		}
		phone = models.PhoneUnresolved
	}

	contact, err := g.upsertContact(ctx, ident, phone, event.Data.PushName, relayFallbackID(key))
	if err != nil {
		return nil, err
	}

	conv, err := g.conversations.Reconcile(ctx, contact.ID, integration.ID, ident.Platform, integration.AgentID)
	if err != nil {
		return nil, err
	}

	sender := models.SenderUser
	unreadDelta := 1
	if key.FromMe {
		sender = models.SenderAgent
		unreadDelta = 0
	}

	msg := &models.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		Sender:            sender,
		Text:              text,
		Media:             media,
		ProviderMessageID: key.ID,
		CreatedAt:         time.Now().UTC(),
	}
	if err := g.store.CreateMessage(ctx, msg); err != nil {
		if apperrors.IsConflict(err) {
			return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "duplicate delivery"}, nil
		}
		return nil, err
	}
	if err := g.store.TouchConversation(ctx, conv.ID, unreadDelta); err != nil {
		g.logger.WithError(err).WithField("conversationId", conv.ID).Warn("Failed to touch conversation")
	}

	g.hub.Broadcast(realtime.Event{
		Type:           realtime.EventNewMessage,
		ConversationID: conv.ID,
		IntegrationID:  integration.ID,
		Message:        msg,
	})

	if key.FromMe {
		return &models.WebhookResult{Status: models.WebhookProcessed, Reason: "mirrored own message"}, nil
	}
	if agent == nil {
		return &models.WebhookResult{Status: models.WebhookProcessed, Reason: "no agent assigned"}, nil
	}

	g.generateReply(ctx, integration, agent, conv, contact, ident)
	return &models.WebhookResult{Status: models.WebhookProcessed}, nil
}

// generateReply runs the AI path. Failures here are logged but never
// surfaced to the end user; from their side the agent simply stays quiet.
func (g *Gateway) generateReply(ctx context.Context, integration *models.Integration, agent *models.Agent,
	conv *models.Conversation, contact *models.Contact, ident identity.Identity) {
	fields := logrus.Fields{
		"conversationId": conv.ID,
		"agentId":        agent.ID,
		"provider":       agent.Provider,
	}

	apiKey, err := g.resolveCredential(ctx, agent)
	if err != nil {
		g.logger.WithError(err).WithFields(fields).Error("Failed to resolve agent credential")
		return
	}

	history, err := g.store.ListMessages(ctx, conv.ID, historyWindow)
	if err != nil {
		g.logger.WithError(err).WithFields(fields).Error("Failed to load conversation history")
		return
	}

	reply, err := g.generator.Reply(ctx, agent, apiKey, history)
	if err != nil {
		g.logger.WithError(err).WithFields(fields).Error("Reply generation failed")
		return
	}
	if reply == "" {
		g.logger.WithFields(fields).Debug("Model produced an empty reply")
		return
	}

	adapter, err := g.registry.Get(integration)
	if err != nil {
		g.logger.WithError(err).WithFields(fields).Error("Failed to build provider adapter")
		return
	}

	target := ident.CanonicalID
	if contact.HasPhone() {
		target = contact.Phone
	}

	if _, err := g.dispatcher.Dispatch(ctx, adapter, conv, integration, target, reply); err != nil {
		g.logger.WithError(err).WithFields(fields).Error("Failed to record agent reply")
	}
}

func (g *Gateway) resolveCredential(ctx context.Context, agent *models.Agent) (string, error) {
	global, err := g.store.GetGlobalSetting(ctx, ProviderSettingKey(agent.Provider))
	if err != nil {
		return "", err
	}
	return llm.ResolveAPIKey(agent.APIKey, global, os.Getenv(ProviderEnvKey(agent.Provider))), nil
}

func (g *Gateway) handleDelete(ctx context.Context, event *models.InboundEvent) (*models.WebhookResult, error) {
	msg, err := g.store.FindMessageByProviderID(ctx, event.Data.Key.ID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "unknown message"}, nil
	}

	if err := g.store.DeleteMessage(ctx, msg.ID); err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeNotFound {
			return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "already deleted"}, nil
		}
		return nil, err
	}

	g.hub.Broadcast(realtime.Event{
		Type:           realtime.EventMessageDeleted,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
	})

	return &models.WebhookResult{Status: models.WebhookProcessed}, nil
}

func (g *Gateway) handleConnectionUpdate(ctx context.Context, typ models.IntegrationType, event *models.InboundEvent) (*models.WebhookResult, error) {
	integration, err := g.findIntegration(ctx, typ, event.Instance)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "unknown instance"}, nil
	}

	var status models.IntegrationStatus
	switch event.Data.State {
	case "open":
		status = models.IntegrationConnected
	case "close", "closed":
		status = models.IntegrationDisconnected
	default:
		return &models.WebhookResult{Status: models.WebhookIgnored, Reason: "transient connection state"}, nil
	}

	if err := g.store.UpdateIntegrationStatus(ctx, integration.ID, status); err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"integrationId": integration.ID,
		"status":        status,
	}).Info("Integration connection state changed")

	return &models.WebhookResult{Status: models.WebhookProcessed}, nil
}

// findConnectedIntegration matches message events against live integrations
// only. Events for a DISCONNECTED binding must not reach the reply pipeline.
func (g *Gateway) findConnectedIntegration(ctx context.Context, typ models.IntegrationType, instance string) (*models.Integration, error) {
	integrations, err := g.store.FindIntegrationsByTypeAndStatus(ctx, typ, models.IntegrationConnected)
	if err != nil {
		return nil, err
	}
	return matchInstance(integrations, instance), nil
}

// findIntegration matches regardless of status. connection.update events must
// be able to reach a disconnected integration to flip it back to CONNECTED.
func (g *Gateway) findIntegration(ctx context.Context, typ models.IntegrationType, instance string) (*models.Integration, error) {
	integrations, err := g.store.FindIntegrationsByType(ctx, typ)
	if err != nil {
		return nil, err
	}
	return matchInstance(integrations, instance), nil
}

func matchInstance(integrations []models.Integration, instance string) *models.Integration {
	for i := range integrations {
		if integrations[i].MatchesInstance(instance) {
			return &integrations[i]
		}
	}
	return nil
}

func (g *Gateway) loadAgent(ctx context.Context, integration *models.Integration) (*models.Agent, error) {
	if integration.AgentID == nil {
		return nil, nil
	}
	agent, err := g.store.GetAgent(ctx, *integration.AgentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		g.logger.WithFields(logrus.Fields{
			"integrationId": integration.ID,
			"agentId":       *integration.AgentID,
		}).Warn("Integration references a missing agent")
	}
	return agent, nil
}

// relayFallbackID returns the relay-suffixed identifier of the event key, if
// any. A contact first seen through relay-only deliveries is stored under it.
func relayFallbackID(key models.MessageKey) string {
	for _, id := range []string{key.RemoteJID, key.RemoteJIDAlt} {
		if identity.IsRelayID(id) {
			return id
		}
	}
	return ""
}

// upsertContact finds or creates the contact behind a canonical platform id,
// upgrading the stored name and phone when the event carries better data.
// When the canonical lookup misses, a contact stored under the relay id is
// re-keyed to the higher-fidelity identifier instead of duplicated.
func (g *Gateway) upsertContact(ctx context.Context, ident identity.Identity, phone, pushName, relayID string) (*models.Contact, error) {
	contact, err := g.store.FindContactByPlatformID(ctx, ident.Platform, ident.CanonicalID)
	if err != nil {
		return nil, err
	}

	if contact == nil && relayID != "" && relayID != ident.CanonicalID {
		relayContact, err := g.store.FindContactByPlatformID(ctx, ident.Platform, relayID)
		if err != nil {
			return nil, err
		}
		if relayContact != nil {
			relayContact.PlatformID = ident.CanonicalID
			if phone != models.PhoneUnresolved {
				relayContact.Phone = phone
			}
			if pushName != "" {
				relayContact.Name = pushName
			}
			if err := g.store.UpdateContact(ctx, relayContact); err != nil {
				return nil, err
			}
			g.logger.WithFields(logrus.Fields{
				"contactId":  relayContact.ID,
				"platformId": ident.CanonicalID,
			}).Info("Contact re-keyed from relay identifier")
			return relayContact, nil
		}
	}

	if contact == nil {
		name := pushName
		if name == "" {
			name = phone
		}
		contact = &models.Contact{
			ID:         uuid.NewString(),
			Name:       name,
			Phone:      phone,
			Platform:   ident.Platform,
			PlatformID: ident.CanonicalID,
		}
		if err := g.store.CreateContact(ctx, contact); err != nil {
			if !apperrors.IsConflict(err) {
				return nil, err
			}
			existing, findErr := g.store.FindContactByPlatformID(ctx, ident.Platform, ident.CanonicalID)
			if findErr != nil {
				return nil, findErr
			}
			if existing == nil {
				return nil, err
			}
			return existing, nil
		}
		return contact, nil
	}

	changed := false
	if pushName != "" && contact.Name != pushName {
		contact.Name = pushName
		changed = true
	}
	if !contact.HasPhone() && phone != models.PhoneUnresolved {
		contact.Phone = phone
		changed = true
	}
	if changed {
		if err := g.store.UpdateContact(ctx, contact); err != nil {
			return nil, err
		}
	}

	return contact, nil
}
