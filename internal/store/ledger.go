package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
)

// LedgerEvent is one audit row. DedupKey makes replays idempotent at the
// database level: INSERT OR IGNORE on the unique column.
type LedgerEvent struct {
	ID        string    `json:"id"`
	DedupKey  string    `json:"dedup_key"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Tool      string    `json:"tool,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AppendLedger writes one audit event. Duplicate dedup keys are silently
// dropped; the boolean reports whether a row was actually inserted.
func (s *Store) AppendLedger(ev *LedgerEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO ledger_events
		(id, dedup_key, user_id, event_type, tool, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.DedupKey, ev.UserID, ev.EventType, ev.Tool, ev.Outcome,
		ev.Detail, ev.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to append ledger event: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		logging.Ledger("AppendLedger: duplicate dropped (%s)", ev.DedupKey)
		return false, nil
	}
	return true, nil
}

// ListLedger returns a user's audit trail, newest first, up to limit
// (0 means no limit).
func (s *Store) ListLedger(userID string, limit int) ([]*LedgerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, dedup_key, user_id, event_type, tool, outcome, detail, created_at
		FROM ledger_events WHERE user_id = ? ORDER BY created_at DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger events: %w", err)
	}
	defer rows.Close()

	var events []*LedgerEvent
	for rows.Next() {
		var ev LedgerEvent
		if err := rows.Scan(&ev.ID, &ev.DedupKey, &ev.UserID, &ev.EventType,
			&ev.Tool, &ev.Outcome, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
