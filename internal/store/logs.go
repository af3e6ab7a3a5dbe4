package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// InsertLog appends one immutable progress record. Assigns an ID when the
// caller did not.
func (s *Store) InsertLog(entry *types.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.Exec(`
		INSERT INTO log_entries (id, item_id, status, value, note, reason, performed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ItemID, entry.Status, entry.Value, entry.Note,
		entry.Reason, entry.PerformedAt)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	logging.StoreDebug("InsertLog: %s for item %s (%s)", entry.Status, entry.ItemID, entry.ID)
	return nil
}

// ListLogs returns log entries for one item, newest first, up to limit
// (0 means no limit).
func (s *Store) ListLogs(itemID string, limit int) ([]*types.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, item_id, status, value, note, reason, performed_at
		FROM log_entries WHERE item_id = ? ORDER BY performed_at DESC`
	args := []interface{}{itemID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.LogEntry
	for rows.Next() {
		var e types.LogEntry
		var value sql.NullInt64
		var note, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Status, &value, &note, &reason, &e.PerformedAt); err != nil {
			return nil, err
		}
		if value.Valid {
			v := int(value.Int64)
			e.Value = &v
		}
		e.Note = note.String
		e.Reason = types.MissReason(reason.String)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// ListLogsSince returns every log entry for a user's items performed on or
// after the given instant, newest first. Used by the daily opening message.
func (s *Store) ListLogsSince(userID string, since time.Time) ([]*types.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT l.id, l.item_id, l.status, l.value, l.note, l.reason, l.performed_at
		FROM log_entries l
		JOIN trackable_items i ON i.id = l.item_id
		WHERE i.user_id = ? AND l.performed_at >= ?
		ORDER BY l.performed_at DESC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	defer rows.Close()

	var entries []*types.LogEntry
	for rows.Next() {
		var e types.LogEntry
		var value sql.NullInt64
		var note, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.Status, &value, &note, &reason, &e.PerformedAt); err != nil {
			return nil, err
		}
		if value.Valid {
			v := int(value.Int64)
			e.Value = &v
		}
		e.Note = note.String
		e.Reason = types.MissReason(reason.String)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
