package plan

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// TrackProgress records one progress event: the append-only log insert and
// the aggregate-counter bump are issued concurrently and both outcomes are
// collected before a status is reported. Either failing alone degrades the
// result to uncertain since the two writes are not transactional.
func (a *Adapter) TrackProgress(ctx context.Context, userID, itemRef string, entry *types.LogEntry) Result {
	item, err := a.store.FindItem(userID, itemRef)
	if err != nil {
		logging.Plan("TrackProgress: item %q not found: %v", itemRef, err)
		return blocked("unknown_item",
			fmt.Sprintf("Je ne trouve pas « %s » dans ton plan. Tu peux me redonner son nom exact ?", itemRef))
	}

	entry.ItemID = item.ID
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now()
	}

	var logErr, counterErr error
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logErr = a.store.InsertLog(entry)
		return nil
	})
	g.Go(func() error {
		counterErr = a.store.BumpCounter(item.ID, entry.Status, entry.PerformedAt)
		return nil
	})
	g.Wait()

	switch {
	case logErr != nil && counterErr != nil:
		logging.Plan("TrackProgress: both writes failed: log=%v counter=%v", logErr, counterErr)
		return failed(retryMsg)
	case logErr != nil || counterErr != nil:
		logging.Plan("TrackProgress: partial write: log=%v counter=%v", logErr, counterErr)
		return uncertain(item.ID)
	}

	var msg string
	switch entry.Status {
	case types.LogCompleted:
		msg = fmt.Sprintf("Bien joué pour « %s » !", item.Title)
	case types.LogPartial:
		msg = fmt.Sprintf("Noté, « %s » en partie, c'est déjà ça.", item.Title)
	default:
		msg = fmt.Sprintf("D'accord, « %s » n'a pas été fait cette fois. Ce n'est pas grave.", item.Title)
	}
	return success(item.ID, msg)
}
