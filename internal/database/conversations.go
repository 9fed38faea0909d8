package database

import (
	"context"
	"database/sql"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const (
	insertConversationQuery = `
		INSERT INTO conversations (id, contact_id, integration_id, platform, status, agent_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectOpenConversationQuery = `
		SELECT id, contact_id, integration_id, platform, status, agent_id, unread_count,
		       created_at, updated_at
		FROM conversations
		WHERE contact_id = ? AND integration_id = ? AND status = 'OPEN'
		ORDER BY updated_at DESC
		LIMIT 1
	`

	updateConversationAgentQuery = `
		UPDATE conversations
		SET agent_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	touchConversationQuery = `
		UPDATE conversations
		SET unread_count = unread_count + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)

func (d *Database) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := d.db.ExecContext(ctx, insertConversationQuery,
		conv.ID, conv.ContactID, conv.IntegrationID,
		string(conv.Platform), string(conv.Status), nullableString(conv.AgentID),
	)
	return wrapWriteError("conversation", "create conversation", err)
}

// FindOpenConversation returns the single OPEN conversation for the pair,
// or nil, nil when none exists.
func (d *Database) FindOpenConversation(ctx context.Context, contactID, integrationID string) (*models.Conversation, error) {
	row := d.db.QueryRowContext(ctx, selectOpenConversationQuery, contactID, integrationID)
	return scanConversation(row)
}

func (d *Database) UpdateConversationAgent(ctx context.Context, id string, agentID *string) error {
	_, err := d.db.ExecContext(ctx, updateConversationAgentQuery, nullableString(agentID), id)
	return wrapWriteError("conversation", "update conversation agent", err)
}

// TouchConversation bumps updated_at and optionally the unread counter
func (d *Database) TouchConversation(ctx context.Context, id string, unreadDelta int) error {
	_, err := d.db.ExecContext(ctx, touchConversationQuery, unreadDelta, id)
	return wrapWriteError("conversation", "touch conversation", err)
}

func scanConversation(row *sql.Row) (*models.Conversation, error) {
	var (
		conv     models.Conversation
		platform string
		status   string
		agentID  sql.NullString
	)

	err := row.Scan(&conv.ID, &conv.ContactID, &conv.IntegrationID,
		&platform, &status, &agentID, &conv.UnreadCount,
		&conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan conversation", err)
	}

	conv.Platform = models.Platform(platform)
	conv.Status = models.ConversationStatus(status)
	if agentID.Valid {
		conv.AgentID = &agentID.String
	}

	return &conv, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
