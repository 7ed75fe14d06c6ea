package storage

import (
	"database/sql"
	"time"
)

// SetUnread writes the count for a conversation (upsert).
func (db *DB) SetUnread(conversationID string, count int) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO unread_counts (conversation_id, count, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			count = excluded.count,
			updated_at = excluded.updated_at`,
		conversationID, count, now)
	return err
}

// DeleteUnread removes a conversation's unread entry entirely.
func (db *DB) DeleteUnread(conversationID string) error {
	_, err := db.Exec(`DELETE FROM unread_counts WHERE conversation_id = ?`, conversationID)
	return err
}

// UnreadMap returns the full persisted unread map.
func (db *DB) UnreadMap() (map[string]int, error) {
	rows, err := db.Query(`SELECT conversation_id, count FROM unread_counts`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// PutState writes a key/value pair to the client state area.
func (db *DB) PutState(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO client_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// GetState reads a client state value. Returns "" when the key is
// absent.
func (db *DB) GetState(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}
