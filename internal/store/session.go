package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// LoadSession reads a user's session state. A missing row yields a fresh
// empty state.
func (s *Store) LoadSession(userID string) (*types.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow(`SELECT state FROM sessions WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return &types.SessionState{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var state types.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	state.UserID = userID
	return &state, nil
}

// SaveSession rewrites a user's session state. Last writer wins.
func (s *Store) SaveSession(state *types.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (user_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.UserID, string(raw), state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
