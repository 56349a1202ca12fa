package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"examsim/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteCheckpointCache struct {
	db *sql.DB
}

// OpenSQLiteCheckpointCache opens (creating if needed) a local checkpoint file.
// It backs the CLI, where there is no shared Redis.
func OpenSQLiteCheckpointCache(path string) (CheckpointCache, func() error, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("cannot create checkpoint directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, err
	}
	// one connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS checkpoints (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		db.Close()
		return nil, nil, err
	}

	return &sqliteCheckpointCache{db: db}, db.Close, nil
}

func (c *sqliteCheckpointCache) SetCheckpoint(ctx context.Context, cp *model.Checkpoint) error {
	if cp.SessionID <= 0 {
		return ErrInvalidSessionID
	}
	return c.put(ctx, checkpointKey(cp.SessionID), cp)
}

func (c *sqliteCheckpointCache) GetCheckpoint(ctx context.Context, sessionID int) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	found, err := c.get(ctx, checkpointKey(sessionID), &cp)
	if err != nil || !found {
		return nil, err
	}
	return &cp, nil
}

func (c *sqliteCheckpointCache) DeleteCheckpoint(ctx context.Context, sessionID int) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = ?`, checkpointKey(sessionID))
	return err
}

func (c *sqliteCheckpointCache) SetDraft(ctx context.Context, draft *model.Draft) error {
	if draft.SessionID <= 0 {
		return ErrInvalidSessionID
	}
	return c.put(ctx, draftKey(draft.SessionID), draft)
}

func (c *sqliteCheckpointCache) GetDraft(ctx context.Context, sessionID int) (*model.Draft, error) {
	var draft model.Draft
	found, err := c.get(ctx, draftKey(sessionID), &draft)
	if err != nil || !found {
		return nil, err
	}
	return &draft, nil
}

func (c *sqliteCheckpointCache) DeleteDraft(ctx context.Context, sessionID int) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE key = ?`, draftKey(sessionID))
	return err
}

func (c *sqliteCheckpointCache) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO checkpoints (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, data)
	return err
}

func (c *sqliteCheckpointCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM checkpoints WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("corrupt record at %s: %w", key, err)
	}
	return true, nil
}
