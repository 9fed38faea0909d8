package database

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const (
	insertMessageQuery = `
		INSERT INTO messages (
			id, conversation_id, sender, text,
			media_type, media_url, media_mime, media_filename, media_size, media_caption,
			provider_message_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectMessagesQuery = `
		SELECT id, conversation_id, sender, text,
		       media_type, media_url, media_mime, media_filename, media_size, media_caption,
		       provider_message_id, created_at
		FROM (
			SELECT id, conversation_id, sender, text,
			       media_type, media_url, media_mime, media_filename, media_size, media_caption,
			       provider_message_id, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY created_at DESC
			LIMIT ?
		)
		ORDER BY created_at ASC
	`

	selectMessageByProviderIDQuery = `
		SELECT id, conversation_id, sender, text,
		       media_type, media_url, media_mime, media_filename, media_size, media_caption,
		       provider_message_id, created_at
		FROM messages
		WHERE provider_message_id = ?
		LIMIT 1
	`

	deleteMessageQuery = `DELETE FROM messages WHERE id = ?`

	deleteOldMessagesQuery = `
		DELETE FROM messages
		WHERE created_at < datetime('now', '-' || ? || ' days')
	`
)

// CreateMessage persists a message. A redelivered webhook with the same
// provider message id trips the uniqueness index and surfaces as a conflict.
func (d *Database) CreateMessage(ctx context.Context, msg *models.Message) error {
	var mediaType, mediaURL, mediaMime, mediaFilename, mediaCaption sql.NullString
	var mediaSize sql.NullInt64
	if msg.Media != nil {
		mediaType = sql.NullString{String: string(msg.Media.Type), Valid: true}
		mediaURL = sql.NullString{String: msg.Media.URL, Valid: true}
		mediaMime = sql.NullString{String: msg.Media.MimeType, Valid: true}
		mediaFilename = sql.NullString{String: msg.Media.Filename, Valid: true}
		mediaCaption = sql.NullString{String: msg.Media.Caption, Valid: true}
		mediaSize = sql.NullInt64{Int64: msg.Media.SizeBytes, Valid: true}
	}

	_, err := d.db.ExecContext(ctx, insertMessageQuery,
		msg.ID, msg.ConversationID, string(msg.Sender), msg.Text,
		mediaType, mediaURL, mediaMime, mediaFilename, mediaSize, mediaCaption,
		msg.ProviderMessageID, msg.CreatedAt,
	)
	return wrapWriteError("message", "create message", err)
}

// FindMessageByProviderID returns nil, nil when no message matches. Used to
// mirror provider-side deletions.
func (d *Database) FindMessageByProviderID(ctx context.Context, providerMessageID string) (*models.Message, error) {
	if providerMessageID == "" {
		return nil, nil
	}

	rows, err := d.db.QueryContext(ctx, selectMessageByProviderIDQuery, providerMessageID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("find message", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanMessage(rows)
}

func (d *Database) DeleteMessage(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, deleteMessageQuery, id)
	if err != nil {
		return apperrors.NewDatabaseError("delete message", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseError("delete message", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("message", id)
	}
	return nil
}

// ListMessages returns the newest messages of a conversation, oldest first.
// The window keeps the latest turns so callers replying to the conversation
// always see the most recent user message.
func (d *Database) ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, selectMessagesQuery, conversationID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list messages", err)
	}

	return messages, nil
}

// CleanupOldMessages removes messages older than the retention period
func (d *Database) CleanupOldMessages(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}
	_, err := d.db.ExecContext(ctx, deleteOldMessagesQuery, retentionDays)
	if err != nil {
		return apperrors.NewDatabaseError("cleanup old messages", err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (*models.Message, error) {
	var (
		msg           models.Message
		sender        string
		mediaType     sql.NullString
		mediaURL      sql.NullString
		mediaMime     sql.NullString
		mediaFilename sql.NullString
		mediaSize     sql.NullInt64
		mediaCaption  sql.NullString
	)

	err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Text,
		&mediaType, &mediaURL, &mediaMime, &mediaFilename, &mediaSize, &mediaCaption,
		&msg.ProviderMessageID, &msg.CreatedAt)
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan message", err)
	}

	msg.Sender = models.SenderType(sender)
	if mediaType.Valid && mediaType.String != "" {
		msg.Media = &models.Media{
			Type:      models.MediaType(mediaType.String),
			URL:       mediaURL.String,
			MimeType:  mediaMime.String,
			Filename:  mediaFilename.String,
			SizeBytes: mediaSize.Int64,
			Caption:   mediaCaption.String,
		}
	}

	return &msg, nil
}
