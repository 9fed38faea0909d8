package database

import (
	"context"
	"database/sql"

	apperrors "omnichat/internal/errors"
)

const (
	upsertSettingQuery = `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	selectSettingQuery = `SELECT value FROM settings WHERE key = ?`
)

// GetGlobalSetting returns "" when the key is not configured
func (d *Database) GetGlobalSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, selectSettingQuery, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("get setting", err)
	}
	return value, nil
}

func (d *Database) SetGlobalSetting(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, upsertSettingQuery, key, value)
	return wrapWriteError("setting", "set setting", err)
}
