package room

import (
	"fhepoker-client/pkg/history"
)

const actionsLimit = 25

// recentActions returns the newest action events, oldest first
// Note: this must only be called from within the run loop
func (d *Dealer) recentActions(limit int) []*history.ActionEvent {
	if limit <= 0 || limit > actionsLimit {
		limit = actionsLimit
	}

	return history.Tail(d.poller.State().Actions, limit)
}
