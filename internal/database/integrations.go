package database

import (
	"context"
	"database/sql"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const (
	insertIntegrationQuery = `
		INSERT INTO integrations (id, type, name, instance_name, base_url, api_key, agent_id, status, callback_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectIntegrationByIDQuery = `
		SELECT id, type, name, instance_name, base_url, api_key, agent_id, status, callback_url,
		       created_at, updated_at
		FROM integrations
		WHERE id = ?
	`

	selectIntegrationsByTypeQuery = `
		SELECT id, type, name, instance_name, base_url, api_key, agent_id, status, callback_url,
		       created_at, updated_at
		FROM integrations
		WHERE type = ?
		ORDER BY created_at ASC
	`

	selectIntegrationsByTypeAndStatusQuery = `
		SELECT id, type, name, instance_name, base_url, api_key, agent_id, status, callback_url,
		       created_at, updated_at
		FROM integrations
		WHERE type = ? AND status = ?
		ORDER BY created_at ASC
	`

	updateIntegrationStatusQuery = `
		UPDATE integrations
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	updateIntegrationCallbackQuery = `
		UPDATE integrations
		SET callback_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
)

// CreateIntegration exists for the integration-management surface and tests;
// the messaging core itself only reads integrations and flips status.
func (d *Database) CreateIntegration(ctx context.Context, integration *models.Integration) error {
	_, err := d.db.ExecContext(ctx, insertIntegrationQuery,
		integration.ID, string(integration.Type), integration.Name,
		integration.InstanceName, integration.BaseURL, integration.APIKey,
		nullableString(integration.AgentID), string(integration.Status), integration.CallbackURL,
	)
	return wrapWriteError("integration", "create integration", err)
}

// GetIntegration returns nil, nil when the integration does not exist
func (d *Database) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	row := d.db.QueryRowContext(ctx, selectIntegrationByIDQuery, id)
	integration, err := scanIntegration(row)
	if err != nil || integration == nil {
		return integration, err
	}
	return integration, nil
}

// FindIntegrationsByType lists all integrations of one provider type,
// regardless of connection status. connection.update handling needs this to
// reach a disconnected binding and flip it back to CONNECTED.
func (d *Database) FindIntegrationsByType(ctx context.Context, typ models.IntegrationType) ([]models.Integration, error) {
	rows, err := d.db.QueryContext(ctx, selectIntegrationsByTypeQuery, string(typ))
	if err != nil {
		return nil, apperrors.NewDatabaseError("find integrations", err)
	}
	defer rows.Close()

	var integrations []models.Integration
	for rows.Next() {
		integration, err := scanIntegrationRows(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("find integrations", err)
	}

	return integrations, nil
}

func (d *Database) FindIntegrationsByTypeAndStatus(ctx context.Context, typ models.IntegrationType, status models.IntegrationStatus) ([]models.Integration, error) {
	rows, err := d.db.QueryContext(ctx, selectIntegrationsByTypeAndStatusQuery, string(typ), string(status))
	if err != nil {
		return nil, apperrors.NewDatabaseError("find integrations", err)
	}
	defer rows.Close()

	var integrations []models.Integration
	for rows.Next() {
		integration, err := scanIntegrationRows(rows)
		if err != nil {
			return nil, err
		}
		integrations = append(integrations, *integration)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("find integrations", err)
	}

	return integrations, nil
}

func (d *Database) UpdateIntegrationStatus(ctx context.Context, id string, status models.IntegrationStatus) error {
	_, err := d.db.ExecContext(ctx, updateIntegrationStatusQuery, string(status), id)
	return wrapWriteError("integration", "update integration status", err)
}

func (d *Database) UpdateIntegrationCallbackURL(ctx context.Context, id string, callbackURL string) error {
	_, err := d.db.ExecContext(ctx, updateIntegrationCallbackQuery, callbackURL, id)
	return wrapWriteError("integration", "update integration callback", err)
}

func scanIntegration(row *sql.Row) (*models.Integration, error) {
	var integration models.Integration
	var typ, status string
	var agentID sql.NullString

	err := row.Scan(&integration.ID, &typ, &integration.Name,
		&integration.InstanceName, &integration.BaseURL, &integration.APIKey,
		&agentID, &status, &integration.CallbackURL,
		&integration.CreatedAt, &integration.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan integration", err)
	}

	integration.Type = models.IntegrationType(typ)
	integration.Status = models.IntegrationStatus(status)
	if agentID.Valid {
		integration.AgentID = &agentID.String
	}

	return &integration, nil
}

func scanIntegrationRows(rows *sql.Rows) (*models.Integration, error) {
	var integration models.Integration
	var typ, status string
	var agentID sql.NullString

	err := rows.Scan(&integration.ID, &typ, &integration.Name,
		&integration.InstanceName, &integration.BaseURL, &integration.APIKey,
		&agentID, &status, &integration.CallbackURL,
		&integration.CreatedAt, &integration.UpdatedAt)
	if err != nil {
		return nil, apperrors.NewDatabaseError("scan integration", err)
	}

	integration.Type = models.IntegrationType(typ)
	integration.Status = models.IntegrationStatus(status)
	if agentID.Valid {
		integration.AgentID = &agentID.String
	}

	return &integration, nil
}
