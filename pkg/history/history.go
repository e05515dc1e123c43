// Package history synthesizes action events by diffing consecutive snapshots
package history

import (
	"fmt"
	"math/big"
	"time"

	"fhepoker-client/pkg/ledger"
	"github.com/google/uuid"
)

// SystemActor is the actor for events nobody at the table caused
const SystemActor = "System"

// MaxCached is the number of events kept in durable storage
const MaxCached = 50

// Kind is the category of an action event
type Kind string

// kind constants
const (
	KindPhase Kind = "phase"
	KindJoin  Kind = "join"
	KindFold  Kind = "fold"
	KindBet   Kind = "bet"
)

// display hints
const (
	iconPhase = "🔄"
	iconJoin  = "👋"
	iconFold  = "🚫"
	iconRaise = "⬆️"
	iconCall  = "✅"

	colorPurple = "purple"
	colorGreen  = "green"
	colorRed    = "red"
	colorYellow = "yellow"
)

// newID returns a unique id for an event
var newID = func() string {
	return uuid.New().String()
}

// ActionEvent is a derived record of something that happened between two polls
type ActionEvent struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Player    string    `json:"player"`
	Action    string    `json:"action"`
	Amount    *big.Int  `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
}

func (a *ActionEvent) String() string {
	return fmt.Sprintf("%s %s: %s", a.Icon, a.Player, a.Action)
}

// Diff compares two snapshots and returns the events that explain the change
// Events are ordered phase, join, folds (seat order), bets (seat order)
// No events are returned when there is no previous snapshot
func Diff(prevGame, nextGame *ledger.GameSnapshot, prevPlayers, nextPlayers []*ledger.PlayerSnapshot, now time.Time) []*ActionEvent {
	if prevGame == nil || nextGame == nil {
		return nil
	}

	events := make([]*ActionEvent, 0)

	if nextGame.Phase != prevGame.Phase {
		events = append(events, &ActionEvent{
			ID:        newID(),
			Kind:      KindPhase,
			Player:    SystemActor,
			Action:    nextGame.Phase.Label(),
			Timestamp: now,
			Icon:      iconPhase,
			Color:     colorPurple,
		})
	}

	// seats only ever fill at the end
	if len(nextPlayers) > len(prevPlayers) {
		joined := nextPlayers[len(nextPlayers)-1]
		events = append(events, &ActionEvent{
			ID:        newID(),
			Kind:      KindJoin,
			Player:    joined.Address.Hex(),
			Action:    "joined the game",
			Timestamp: now,
			Icon:      iconJoin,
			Color:     colorGreen,
		})
	}

	shared := len(prevPlayers)
	if len(nextPlayers) < shared {
		shared = len(nextPlayers)
	}

	for i := 0; i < shared; i++ {
		if !prevPlayers[i].Folded && nextPlayers[i].Folded {
			events = append(events, &ActionEvent{
				ID:        newID(),
				Kind:      KindFold,
				Player:    nextPlayers[i].Address.Hex(),
				Action:    "Fold",
				Timestamp: now,
				Icon:      iconFold,
				Color:     colorRed,
			})
		}
	}

	for i := 0; i < shared; i++ {
		prevBet := orZero(prevPlayers[i].CurrentBet)
		nextBet := orZero(nextPlayers[i].CurrentBet)
		if nextBet.Cmp(prevBet) <= 0 {
			continue
		}

		delta := new(big.Int).Sub(nextBet, prevBet)
		label, icon, color := "Raise", iconRaise, colorYellow
		if nextBet.Cmp(orZero(nextGame.CurrentBet)) == 0 {
			label, icon, color = "Call", iconCall, colorGreen
		}

		events = append(events, &ActionEvent{
			ID:        newID(),
			Kind:      KindBet,
			Player:    nextPlayers[i].Address.Hex(),
			Action:    fmt.Sprintf("%s %s", label, delta),
			Amount:    delta,
			Timestamp: now,
			Icon:      icon,
			Color:     color,
		})
	}

	return events
}

// Tail returns the most recent n events
func Tail(events []*ActionEvent, n int) []*ActionEvent {
	if len(events) <= n {
		return events
	}

	return events[len(events)-n:]
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
