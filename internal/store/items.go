package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

const itemColumns = `id, user_id, kind, title, description, tracking_mode,
	target_reps, schedule, status, phase, last_performed_at,
	completed_count, missed_count, created_at, updated_at`

// CreateItem inserts a new trackable item row.
func (s *Store) CreateItem(item *types.TrackableItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := json.Marshal(item.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO trackable_items
		(id, user_id, kind, title, description, tracking_mode, target_reps,
		 schedule, status, phase, last_performed_at, completed_count,
		 missed_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Kind, item.Title, item.Description,
		item.TrackingMode, item.TargetReps, string(sched), item.Status,
		item.Phase, item.LastPerformedAt, item.CompletedCount,
		item.MissedCount, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}

	logging.StoreDebug("CreateItem: inserted %s (%s) for user %s", item.Title, item.ID, item.UserID)
	return nil
}

// GetItem fetches one item by id.
func (s *Store) GetItem(id string) (*types.TrackableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM trackable_items WHERE id = ?`, id)
	return scanItem(row)
}

// GetItemByTitle fetches one item by case-insensitive exact title for a
// user. sql.ErrNoRows maps to (nil, nil).
func (s *Store) GetItemByTitle(userID, title string) (*types.TrackableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT `+itemColumns+` FROM trackable_items
		WHERE user_id = ? AND title = ? COLLATE NOCASE`,
		userID, strings.TrimSpace(title))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return item, err
}

// FindItem resolves an item reference: first by id, then by title.
func (s *Store) FindItem(userID, ref string) (*types.TrackableItem, error) {
	item, err := s.GetItem(ref)
	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	item, err = s.GetItemByTitle(userID, ref)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, sql.ErrNoRows
	}
	return item, nil
}

// ListItems returns every item for a user, phase then title order.
func (s *Store) ListItems(userID string) ([]*types.TrackableItem, error) {
	return s.listItemsWhere(`user_id = ?`, userID)
}

// ListItemsByStatus returns a user's items filtered on status.
func (s *Store) ListItemsByStatus(userID string, status types.ItemStatus) ([]*types.TrackableItem, error) {
	return s.listItemsWhere(`user_id = ? AND status = ?`, userID, string(status))
}

// ListItemsInPhase returns a user's items in one phase.
func (s *Store) ListItemsInPhase(userID string, phase int) ([]*types.TrackableItem, error) {
	return s.listItemsWhere(`user_id = ? AND phase = ?`, userID, phase)
}

func (s *Store) listItemsWhere(where string, args ...interface{}) ([]*types.TrackableItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+itemColumns+` FROM trackable_items WHERE `+where+` ORDER BY phase, title`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*types.TrackableItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem rewrites every mutable column of an item row.
func (s *Store) UpdateItem(item *types.TrackableItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, err := json.Marshal(item.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	item.UpdatedAt = time.Now()

	res, err := s.db.Exec(`
		UPDATE trackable_items SET
			kind = ?, title = ?, description = ?, tracking_mode = ?,
			target_reps = ?, schedule = ?, status = ?, phase = ?,
			last_performed_at = ?, completed_count = ?, missed_count = ?,
			updated_at = ?
		WHERE id = ?`,
		item.Kind, item.Title, item.Description, item.TrackingMode,
		item.TargetReps, string(sched), item.Status, item.Phase,
		item.LastPerformedAt, item.CompletedCount, item.MissedCount,
		item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s", item.ID)
	}

	logging.StoreDebug("UpdateItem: updated %s (%s)", item.Title, item.ID)
	return nil
}

// SetItemStatus flips only the status flag of an item.
func (s *Store) SetItemStatus(id string, status types.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE trackable_items SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set item status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s", id)
	}
	return nil
}

// BumpCounter increments the aggregate counter matching a log status and
// refreshes last_performed_at. Partial logs count toward completion.
func (s *Store) BumpCounter(id string, status types.LogStatus, performedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	column := "completed_count"
	if status == types.LogMissed {
		column = "missed_count"
	}
	res, err := s.db.Exec(`
		UPDATE trackable_items SET `+column+` = `+column+` + 1,
			last_performed_at = ?, updated_at = ?
		WHERE id = ?`,
		performedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to bump counter: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item not found: %s", id)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(sc scanner) (*types.TrackableItem, error) {
	var item types.TrackableItem
	var sched string
	var lastPerformed sql.NullTime

	err := sc.Scan(&item.ID, &item.UserID, &item.Kind, &item.Title,
		&item.Description, &item.TrackingMode, &item.TargetReps, &sched,
		&item.Status, &item.Phase, &lastPerformed, &item.CompletedCount,
		&item.MissedCount, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(sched), &item.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule for %s: %w", item.ID, err)
	}
	if lastPerformed.Valid {
		item.LastPerformedAt = &lastPerformed.Time
	}
	return &item, nil
}
