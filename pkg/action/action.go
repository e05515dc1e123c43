package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// ErrUnknownAction is returned for an action code the contract does not accept
var ErrUnknownAction = errors.New("unknown action")

// Action represents an action a player can take
// The values are the codes the contract expects in playerAction()
type Action uint8

// action constants
const (
	Fold  Action = 1
	Check Action = 2
	Call  Action = 3
	Raise Action = 4
)

var allowedActions = map[Action]bool{
	Fold:  true,
	Check: true,
	Call:  true,
	Raise: true,
}

// FromCode returns an action for the given contract code
func FromCode(code int) (Action, error) {
	if code > 0 && code < 256 {
		if _, ok := allowedActions[Action(code)]; ok {
			return Action(code), nil
		}
	}

	return 0, fmt.Errorf("%w: %d", ErrUnknownAction, code)
}

func (a Action) String() string {
	switch a {
	case Fold:
		return "Fold"
	case Check:
		return "Check"
	case Call:
		return "Call"
	case Raise:
		return "Raise"
	}

	return "Unknown"
}

// Description returns a human-readable description of an action
func (a Action) Description() string {
	switch a {
	case Fold:
		return "Fold - Give up this hand"
	case Check:
		return "Check - Pass without betting"
	case Call:
		return "Call - Match the current bet"
	case Raise:
		return "Raise - Increase the bet"
	}

	return "Unknown action"
}

// MarshalJSON encodes the action into JSON
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   uint8  `json:"id"`
		Name string `json:"name"`
	}{
		ID:   uint8(a),
		Name: a.String(),
	})
}

// IsValid returns true if the action is permitted
func (a Action) IsValid() bool {
	_, ok := allowedActions[a]
	return ok
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
