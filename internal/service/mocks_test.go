package service

import (
	"context"
	"sync"

	"omnichat/internal/models"
	"omnichat/internal/realtime"
	"omnichat/pkg/channel"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockStore) FindContactByPlatformID(ctx context.Context, platform models.Platform, platformID string) (*models.Contact, error) {
	args := m.Called(ctx, platform, platformID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockStore) UpdateContact(ctx context.Context, contact *models.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockStore) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockStore) FindOpenConversation(ctx context.Context, contactID, integrationID string) (*models.Conversation, error) {
	args := m.Called(ctx, contactID, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockStore) UpdateConversationAgent(ctx context.Context, id string, agentID *string) error {
	args := m.Called(ctx, id, agentID)
	return args.Error(0)
}

func (m *MockStore) TouchConversation(ctx context.Context, id string, unreadDelta int) error {
	args := m.Called(ctx, id, unreadDelta)
	return args.Error(0)
}

func (m *MockStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) FindMessageByProviderID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	args := m.Called(ctx, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockStore) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStore) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStore) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockStore) FindIntegrationsByType(ctx context.Context, typ models.IntegrationType) ([]models.Integration, error) {
	args := m.Called(ctx, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Integration), args.Error(1)
}

func (m *MockStore) FindIntegrationsByTypeAndStatus(ctx context.Context, typ models.IntegrationType, status models.IntegrationStatus) ([]models.Integration, error) {
	args := m.Called(ctx, typ, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Integration), args.Error(1)
}

func (m *MockStore) UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockStore) GetGlobalSetting(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// recordingHub captures broadcasts for assertions.
type recordingHub struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (h *recordingHub) Broadcast(event realtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHub) Events() []realtime.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]realtime.Event, len(h.events))
	copy(out, h.events)
	return out
}

// fakeGenerator returns a canned reply or error.
type fakeGenerator struct {
	reply   string
	err     error
	called  bool
	history []models.Message
}

func (f *fakeGenerator) Reply(ctx context.Context, agent *models.Agent, apiKey string, history []models.Message) (string, error) {
	f.called = true
	f.history = history
	return f.reply, f.err
}

// fakeAdapter records sends and can fail on demand.
type fakeAdapter struct {
	textErr   error
	mediaErr  error
	sentTexts []string
	sentMedia []channel.MediaItem
	targets   []string
}

func (f *fakeAdapter) SendText(ctx context.Context, target, text string) (*channel.SendResult, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	f.sentTexts = append(f.sentTexts, text)
	f.targets = append(f.targets, target)
	return &channel.SendResult{MessageID: "provider-msg-1"}, nil
}

func (f *fakeAdapter) SendMedia(ctx context.Context, target string, item channel.MediaItem) (*channel.SendResult, error) {
	if f.mediaErr != nil {
		return nil, f.mediaErr
	}
	f.sentMedia = append(f.sentMedia, item)
	return &channel.SendResult{MessageID: "provider-media-1"}, nil
}

func (f *fakeAdapter) FetchConnectionState(ctx context.Context) (channel.ConnectionState, error) {
	return channel.StateConnected, nil
}

func (f *fakeAdapter) SetCallbackURL(ctx context.Context, url string) error { return nil }
func (f *fakeAdapter) CreateSession(ctx context.Context) error              { return nil }
func (f *fakeAdapter) DeleteSession(ctx context.Context) error              { return nil }
