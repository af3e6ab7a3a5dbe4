package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// LoadPlan reads a user's plan document. A missing row yields an empty
// document with a single active phase so first-run flows have somewhere
// to put items.
func (s *Store) LoadPlan(userID string) (*types.PlanDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var content string
	err := s.db.QueryRow(`SELECT content FROM plan_documents WHERE user_id = ?`, userID).Scan(&content)
	if err == sql.ErrNoRows {
		return &types.PlanDocument{
			Phases: []types.PlanPhase{{Name: "Phase 1", Status: types.PhaseActive}},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan document: %w", err)
	}

	var doc types.PlanDocument
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan document: %w", err)
	}
	return &doc, nil
}

// SavePlan rewrites a user's plan document whole.
func (s *Store) SavePlan(userID string, doc *types.PlanDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	content, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal plan document: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO plan_documents (user_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		userID, string(content), doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan document: %w", err)
	}

	logging.PlanDebug("SavePlan: wrote document for %s (%d phases)", userID, len(doc.Phases))
	return nil
}
