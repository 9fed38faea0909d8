package database

import (
	"context"
	"database/sql"

	apperrors "omnichat/internal/errors"
	"omnichat/internal/models"
)

const (
	insertOrReplaceAgentQuery = `
		INSERT OR REPLACE INTO agents (
			id, name, provider, model, system_prompt, temperature, max_tokens,
			api_key, listing_search, reply_in_groups
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectAgentByIDQuery = `
		SELECT id, name, provider, model, system_prompt, temperature, max_tokens,
		       api_key, listing_search, reply_in_groups, created_at, updated_at
		FROM agents
		WHERE id = ?
	`
)

// SaveAgent stores an agent, encrypting the dedicated API key at rest
func (d *Database) SaveAgent(ctx context.Context, agent *models.Agent) error {
	encryptedKey, err := d.encryptor.Encrypt(agent.APIKey)
	if err != nil {
		return apperrors.NewDatabaseError("encrypt agent key", err)
	}

	_, err = d.db.ExecContext(ctx, insertOrReplaceAgentQuery,
		agent.ID, agent.Name, string(agent.Provider), agent.Model,
		agent.SystemPrompt, agent.Temperature, agent.MaxTokens,
		encryptedKey, agent.ListingSearch, agent.ReplyInGroups,
	)
	return wrapWriteError("agent", "save agent", err)
}

// GetAgent returns nil, nil when the agent does not exist
func (d *Database) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	var provider, encryptedKey string

	err := d.db.QueryRowContext(ctx, selectAgentByIDQuery, id).Scan(
		&agent.ID, &agent.Name, &provider, &agent.Model,
		&agent.SystemPrompt, &agent.Temperature, &agent.MaxTokens,
		&encryptedKey, &agent.ListingSearch, &agent.ReplyInGroups,
		&agent.CreatedAt, &agent.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get agent", err)
	}

	agent.Provider = models.LLMProvider(provider)
	agent.APIKey, err = d.encryptor.Decrypt(encryptedKey)
	if err != nil {
		return nil, apperrors.NewDatabaseError("decrypt agent key", err)
	}

	return &agent, nil
}
