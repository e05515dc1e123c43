package ledger

import (
	"fmt"
)

// Phase is the lifecycle stage of a hand
type Phase uint8

// phase constants, in the order the contract moves through them
const (
	Waiting Phase = iota
	PreFlop
	Flop
	Showdown
	Finished
)

var phaseNames = map[Phase]string{
	Waiting:  "Waiting",
	PreFlop:  "PreFlop",
	Flop:     "Flop",
	Showdown: "Showdown",
	Finished: "Finished",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return "Unknown"
}

// Label is the action history label for a move into this phase
func (p Phase) Label() string {
	return fmt.Sprintf("Phase: %s", p)
}

// InBettingRound returns true if players can act in this phase
func (p Phase) InBettingRound() bool {
	return p >= PreFlop && p < Showdown
}

// HasCommunityCards returns true once community cards are on the table
func (p Phase) HasCommunityCards() bool {
	return p >= Flop
}

// IsShowdown returns true if showdown cards can be read
func (p Phase) IsShowdown() bool {
	return p == Showdown || p == Finished
}
