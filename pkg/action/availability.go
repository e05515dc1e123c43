package action

import (
	"fmt"
	"math/big"
)

// MinRaiseIncrement is how far above a call a raise must go
const MinRaiseIncrement = 10

// NotYourTurn is the reason given for every action when the player is not on the clock
const NotYourTurn = "Not your turn"

// Availability describes which actions a player may take and why the others are disabled
type Availability struct {
	CanFold     bool   `json:"canFold"`
	CanCheck    bool   `json:"canCheck"`
	CanCall     bool   `json:"canCall"`
	CanRaise    bool   `json:"canRaise"`
	FoldReason  string `json:"foldReason,omitempty"`
	CheckReason string `json:"checkReason,omitempty"`
	CallReason  string `json:"callReason,omitempty"`
	RaiseReason string `json:"raiseReason,omitempty"`
}

// Evaluate calculates which actions are available for a player
// playerBet is what the player has put in this round, gameBet is the highest bet of the round
func Evaluate(playerBet, gameBet, playerChips *big.Int, isPlayerTurn bool) Availability {
	playerBet = orZero(playerBet)
	gameBet = orZero(gameBet)
	chips := orZero(playerChips)

	var a Availability
	if !isPlayerTurn {
		a.FoldReason = NotYourTurn
		a.CheckReason = NotYourTurn
		a.CallReason = NotYourTurn
		a.RaiseReason = NotYourTurn
		return a
	}

	a.CanFold = true

	diff := new(big.Int).Sub(gameBet, playerBet)
	if playerBet.Cmp(gameBet) == 0 {
		a.CanCheck = true
	} else {
		a.CheckReason = fmt.Sprintf("You must call %s chips first", diff)
	}

	if playerBet.Cmp(gameBet) < 0 {
		if chips.Cmp(diff) >= 0 {
			a.CanCall = true
		} else {
			a.CallReason = fmt.Sprintf("Not enough chips (need %s, have %s)", diff, chips)
		}
	} else {
		a.CallReason = "You've already matched the current bet"
	}

	minRaise := new(big.Int).Add(diff, big.NewInt(MinRaiseIncrement))
	if chips.Cmp(minRaise) >= 0 {
		a.CanRaise = true
	} else {
		a.RaiseReason = fmt.Sprintf("Not enough chips (need at least %s, have %s)", minRaise, chips)
	}

	return a
}

// Allows returns true if the action is enabled
func (a Availability) Allows(act Action) bool {
	switch act {
	case Fold:
		return a.CanFold
	case Check:
		return a.CanCheck
	case Call:
		return a.CanCall
	case Raise:
		return a.CanRaise
	}

	return false
}

// Actions returns the enabled actions in contract code order
func (a Availability) Actions() []Action {
	actions := make([]Action, 0, 4)
	for _, act := range []Action{Fold, Check, Call, Raise} {
		if a.Allows(act) {
			actions = append(actions, act)
		}
	}

	return actions
}

// Option is an enabled action as shown to the player
type Option struct {
	ID          uint8  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Summary is an Availability along with the enabled actions spelled out
type Summary struct {
	Availability
	Options []Option `json:"options"`
}

// Summary lists the enabled actions with their descriptions
func (a Availability) Summary() Summary {
	actions := a.Actions()
	sum := Summary{Availability: a, Options: make([]Option, len(actions))}
	for i, act := range actions {
		sum.Options[i] = Option{ID: uint8(act), Name: act.String(), Description: act.Description()}
	}

	return sum
}

// Reason returns why the action is disabled, or an empty string if it is enabled
func (a Availability) Reason(act Action) string {
	switch act {
	case Fold:
		return a.FoldReason
	case Check:
		return a.CheckReason
	case Call:
		return a.CallReason
	case Raise:
		return a.RaiseReason
	}

	return fmt.Sprintf("%s is not a valid action", act)
}
