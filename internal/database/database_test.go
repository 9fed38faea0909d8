package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "omnichat-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func testContact(platformID string) *models.Contact {
	return &models.Contact{
		ID:         uuid.NewString(),
		Name:       "Maria",
		Phone:      "5511999990001",
		Platform:   models.PlatformWhatsApp,
		PlatformID: platformID,
	}
}

func testIntegration() *models.Integration {
	return &models.Integration{
		ID:           uuid.NewString(),
		Type:         models.IntegrationEvolution,
		Name:         "Main Line",
		InstanceName: "main-line",
		BaseURL:      "http://localhost:8080",
		Status:       models.IntegrationConnected,
	}
}

func TestContactIdentityUniqueness(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := testContact("5511999990001@s.whatsapp.net")
	require.NoError(t, db.CreateContact(ctx, first))

	dup := testContact("5511999990001@s.whatsapp.net")
	err := db.CreateContact(ctx, dup)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Re-ingesting the same id updates, never duplicates.
	first.Name = "Maria Silva"
	require.NoError(t, db.UpdateContact(ctx, first))

	found, err := db.FindContactByPlatformID(ctx, models.PlatformWhatsApp, first.PlatformID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID, found.ID)
	assert.Equal(t, "Maria Silva", found.Name)
}

func TestFindContactByPlatformID_NotFound(t *testing.T) {
	db := setupTestDB(t)

	found, err := db.FindContactByPlatformID(context.Background(), models.PlatformWhatsApp, "missing@s.whatsapp.net")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSingleOpenConversationInvariant(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	second := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	err := db.CreateConversation(ctx, second)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// A RESOLVED row does not violate the partial index.
	resolved := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationResolved,
	}
	require.NoError(t, db.CreateConversation(ctx, resolved))

	found, err := db.FindOpenConversation(ctx, contact.ID, integration.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, conv.ID, found.ID)
}

func TestSingleOpenConversationUnderConcurrency(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv := &models.Conversation{
				ID:            uuid.NewString(),
				ContactID:     contact.ID,
				IntegrationID: integration.ID,
				Platform:      models.PlatformWhatsApp,
				Status:        models.ConversationOpen,
			}
			if err := db.CreateConversation(ctx, conv); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created, "exactly one OPEN conversation may be created")
}

func TestMessageDeduplicationByProviderID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	msg := &models.Message{
		ID:                uuid.NewString(),
		ConversationID:    conv.ID,
		Sender:            models.SenderUser,
		Text:              "Oi",
		ProviderMessageID: "3EB0A9C8F2",
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.CreateMessage(ctx, msg))

	redelivery := *msg
	redelivery.ID = uuid.NewString()
	err := db.CreateMessage(ctx, &redelivery)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Messages without a provider id are not constrained against each other.
	system := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         models.SenderSystem,
		Text:           "note",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.CreateMessage(ctx, system))
	system.ID = uuid.NewString()
	require.NoError(t, db.CreateMessage(ctx, system))
}

func TestListMessagesOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	base := time.Now().UTC().Truncate(time.Second)
	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		require.NoError(t, db.CreateMessage(ctx, &models.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Sender:         models.SenderUser,
			Text:           text,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	messages, err := db.ListMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, text := range texts {
		assert.Equal(t, text, messages[i].Text)
	}
}

func TestListMessagesWindowKeepsNewest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 60; i++ {
		require.NoError(t, db.CreateMessage(ctx, &models.Message{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Sender:         models.SenderUser,
			Text:           fmt.Sprintf("m%03d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	// A limited window must keep the newest turns; a reply generated from
	// it has to see the latest user message.
	messages, err := db.ListMessages(ctx, conv.ID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 50)
	assert.Equal(t, "m010", messages[0].Text)
	assert.Equal(t, "m059", messages[len(messages)-1].Text)
}

func TestCreateMessageForeignKeyFailureIsNotConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.CreateMessage(ctx, &models.Message{
		ID:             uuid.NewString(),
		ConversationID: "no-such-conversation",
		Sender:         models.SenderUser,
		Text:           "Oi",
		CreatedAt:      time.Now().UTC(),
	})
	require.Error(t, err)

	// A broken reference is a write error, not a duplicate delivery.
	assert.False(t, apperrors.IsConflict(err))
	assert.Equal(t, apperrors.ErrCodeDatabaseQuery, apperrors.GetCode(err))
}

func TestMessageMediaRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Media: &models.Media{
			Type:      models.MediaImage,
			URL:       "https://cdn.example.com/photo.jpg",
			MimeType:  "image/jpeg",
			SizeBytes: 20480,
			Caption:   "front view",
		},
		ProviderMessageID: "3EB0MEDIA01",
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.CreateMessage(ctx, msg))

	messages, err := db.ListMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.NotNil(t, messages[0].Media)
	assert.Equal(t, models.MediaImage, messages[0].Media.Type)
	assert.Equal(t, "https://cdn.example.com/photo.jpg", messages[0].Media.URL)
	assert.Equal(t, int64(20480), messages[0].Media.SizeBytes)
}

func TestDeleteMessage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	contact := testContact("5511999990001@s.whatsapp.net")
	integration := testIntegration()
	require.NoError(t, db.CreateContact(ctx, contact))
	require.NoError(t, db.CreateIntegration(ctx, integration))

	conv := &models.Conversation{
		ID:            uuid.NewString(),
		ContactID:     contact.ID,
		IntegrationID: integration.ID,
		Platform:      models.PlatformWhatsApp,
		Status:        models.ConversationOpen,
	}
	require.NoError(t, db.CreateConversation(ctx, conv))

	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Sender:         models.SenderUser,
		Text:           "delete me",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.CreateMessage(ctx, msg))
	require.NoError(t, db.DeleteMessage(ctx, msg.ID))

	err := db.DeleteMessage(ctx, msg.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestIntegrationStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	integration := testIntegration()
	require.NoError(t, db.CreateIntegration(ctx, integration))

	connected, err := db.FindIntegrationsByTypeAndStatus(ctx, models.IntegrationEvolution, models.IntegrationConnected)
	require.NoError(t, err)
	require.Len(t, connected, 1)

	require.NoError(t, db.UpdateIntegrationStatus(ctx, integration.ID, models.IntegrationDisconnected))

	connected, err = db.FindIntegrationsByTypeAndStatus(ctx, models.IntegrationEvolution, models.IntegrationConnected)
	require.NoError(t, err)
	assert.Empty(t, connected)

	got, err := db.GetIntegration(ctx, integration.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.IntegrationDisconnected, got.Status)
}

func TestIntegrationCallbackBookkeeping(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	integration := testIntegration()
	require.NoError(t, db.CreateIntegration(ctx, integration))

	require.NoError(t, db.UpdateIntegrationCallbackURL(ctx, integration.ID, "https://crm.example.com/webhook/evolution"))

	got, err := db.GetIntegration(ctx, integration.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://crm.example.com/webhook/evolution", got.CallbackURL)
}

func TestAgentRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	agent := &models.Agent{
		ID:            uuid.NewString(),
		Name:          "Realtor Bot",
		Provider:      models.ProviderOpenAI,
		Model:         "gpt-4o-mini",
		SystemPrompt:  "You are a helpful realtor.",
		Temperature:   0.5,
		MaxTokens:     512,
		APIKey:        "sk-agent-dedicated",
		ListingSearch: true,
	}
	require.NoError(t, db.SaveAgent(ctx, agent))

	got, err := db.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, agent.Name, got.Name)
	assert.Equal(t, agent.APIKey, got.APIKey)
	assert.True(t, got.ListingSearch)

	missing, err := db.GetAgent(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGlobalSettings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	value, err := db.GetGlobalSetting(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, db.SetGlobalSetting(ctx, "openai_api_key", "sk-global"))
	require.NoError(t, db.SetGlobalSetting(ctx, "openai_api_key", "sk-global-2"))

	value, err = db.GetGlobalSetting(ctx, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-global-2", value)
}

func TestSearchListings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []models.Listing{
		{ID: "l1", Title: "Loft centro", City: "Sao Paulo", Type: "apartment", Price: 350000, Bedrooms: 1, Code: "AP-001", Images: []string{"https://cdn.example.com/l1.jpg"}},
		{ID: "l2", Title: "Casa jardim", City: "Sao Paulo", Type: "house", Price: 900000, Bedrooms: 3, Code: "CA-002"},
		{ID: "l3", Title: "Kitnet praia", City: "Santos", Type: "apartment", Price: 200000, Bedrooms: 1, Code: "AP-003"},
	}
	for i := range seed {
		require.NoError(t, db.SaveListing(ctx, &seed[i]))
	}

	tests := []struct {
		name     string
		filter   models.ListingFilter
		expected []string
	}{
		{
			name:     "city substring case-insensitive",
			filter:   models.ListingFilter{City: "sao"},
			expected: []string{"l1", "l2"},
		},
		{
			name:     "type exact",
			filter:   models.ListingFilter{Type: "apartment"},
			expected: []string{"l3", "l1"},
		},
		{
			name:     "max price bound",
			filter:   models.ListingFilter{MaxPrice: 400000},
			expected: []string{"l3", "l1"},
		},
		{
			name:     "min bedrooms bound",
			filter:   models.ListingFilter{MinBedrooms: 2},
			expected: []string{"l2"},
		},
		{
			name:     "combined filters no match",
			filter:   models.ListingFilter{City: "Santos", MinBedrooms: 3},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := db.SearchListings(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(listings))
			for _, l := range listings {
				ids = append(ids, l.ID)
			}
			if tt.expected == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.expected, ids)
			}
		})
	}
}

func TestSearchListingsCap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, db.SaveListing(ctx, &models.Listing{
			ID:    uuid.NewString(),
			Title: "Listing",
			City:  "Curitiba",
			Type:  "apartment",
			Price: float64(100000 + i),
		}))
	}

	listings, err := db.SearchListings(ctx, models.ListingFilter{City: "Curitiba"})
	require.NoError(t, err)
	assert.Len(t, listings, 5)
}
