package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const (
	insertContactQuery = `
		INSERT INTO contacts (id, name, phone, platform, platform_id, tags)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectContactByIdentityQuery = `
		SELECT id, name, phone, platform, platform_id, tags, created_at, updated_at
		FROM contacts
		WHERE platform = ? AND platform_id = ?
	`

	updateContactQuery = `
		UPDATE contacts
		SET name = ?, phone = ?, platform_id = ?, tags = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)

func (d *Database) CreateContact(ctx context.Context, contact *models.Contact) error {
	tags, err := json.Marshal(tagsOrEmpty(contact.Tags))
	if err != nil {
		return apperrors.NewDatabaseError("marshal contact tags", err)
	}

	_, err = d.db.ExecContext(ctx, insertContactQuery,
		contact.ID, contact.Name, contact.Phone,
		string(contact.Platform), contact.PlatformID, string(tags),
	)
	return wrapWriteError("contact", "create contact", err)
}

// FindContactByPlatformID returns nil, nil when no contact exists
func (d *Database) FindContactByPlatformID(ctx context.Context, platform models.Platform, platformID string) (*models.Contact, error) {
	row := d.db.QueryRowContext(ctx, selectContactByIdentityQuery, string(platform), platformID)
	return scanContact(row)
}

func (d *Database) UpdateContact(ctx context.Context, contact *models.Contact) error {
	tags, err := json.Marshal(tagsOrEmpty(contact.Tags))
	if err != nil {
		return apperrors.NewDatabaseError("marshal contact tags", err)
	}

	_, err = d.db.ExecContext(ctx, updateContactQuery,
		contact.Name, contact.Phone, contact.PlatformID, string(tags), contact.ID,
	)
	return wrapWriteError("contact", "update contact", err)
}

func scanContact(row *sql.Row) (*models.Contact, error) {
	var (
		contact   models.Contact
		platform  string
		tagsJSON  string
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&contact.ID, &contact.Name, &contact.Phone,
		&platform, &contact.PlatformID, &tagsJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan contact", err)
	}

	contact.Platform = models.Platform(platform)
	contact.CreatedAt = createdAt
	contact.UpdatedAt = updatedAt
	if err := json.Unmarshal([]byte(tagsJSON), &contact.Tags); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal contact tags", err)
	}

	return &contact, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
