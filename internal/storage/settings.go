package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting: %w", err)
	}
	return value, nil
}

// SetSetting writes a key, overwriting any existing value.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// SetSettingIfAbsent writes a key only when it does not exist yet.
func (q *Queries) SetSettingIfAbsent(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO NOTHING`, key, value)
	if err != nil {
		return fmt.Errorf("set setting if absent: %w", err)
	}
	return nil
}

func (q *Queries) ListSettings(ctx context.Context) ([]core.Setting, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []core.Setting
	for rows.Next() {
		var s core.Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}
