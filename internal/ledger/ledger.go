// Package ledger records a best-effort audit trail of tool attempts and
// candidate transitions. Writes happen on a background goroutine and never
// block or fail the user-facing turn. An in-process, size-bounded dedup
// set drops repeats caused by upstream retries; the UNIQUE dedup_key
// column in the store is the second line of defense.
package ledger

import (
	"strings"
	"sync"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/store"
)

// Event types recorded per candidate transition and tool dispatch.
const (
	EventCandidateStarted   = "candidate_started"
	EventPreviewShown       = "preview_shown"
	EventClarificationAsked = "clarification_asked"
	EventCandidateCompleted = "candidate_completed"
	EventCandidateAbandoned = "candidate_abandoned"
	EventToolAttempted      = "tool_attempted"
	EventToolExecuted       = "tool_executed"
)

const defaultMaxSeen = 1024

// Writer appends audit events without ever blocking the caller.
type Writer struct {
	store *store.Store

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string // FIFO eviction when the set is full

	wg sync.WaitGroup
}

// NewWriter wraps a store.
func NewWriter(s *store.Store) *Writer {
	return &Writer{
		store: s,
		seen:  make(map[string]struct{}),
	}
}

// Key builds a deterministic dedup key from its parts.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// Record fires an audit write in the background. Duplicate keys already in
// the in-process set are dropped before a goroutine is even spawned.
func (w *Writer) Record(ev store.LedgerEvent) {
	if ev.DedupKey == "" {
		ev.DedupKey = Key(ev.UserID, ev.EventType, ev.Tool, ev.Detail)
	}
	if !w.markSeen(ev.DedupKey) {
		logging.Ledger("Record: dropped in-process duplicate %s", ev.DedupKey)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if _, err := w.store.AppendLedger(&ev); err != nil {
			// Best effort only. Log and move on.
			logging.Ledger("Record: append failed for %s: %v", ev.DedupKey, err)
		}
	}()
}

// markSeen reports whether the key is new, inserting it and evicting the
// oldest entry when the bounded set is full.
func (w *Writer) markSeen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.seen[key]; dup {
		return false
	}
	if len(w.order) >= defaultMaxSeen {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.seen, oldest)
	}
	w.seen[key] = struct{}{}
	w.order = append(w.order, key)
	return true
}

// Flush waits for in-flight writes. Called on shutdown and in tests.
func (w *Writer) Flush() {
	w.wg.Wait()
}
