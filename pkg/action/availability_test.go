package action

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_NotYourTurn(t *testing.T) {
	for _, tc := range [][3]int64{{0, 0, 0}, {10, 20, 1000}, {50, 50, 5}} {
		a := Evaluate(big.NewInt(tc[0]), big.NewInt(tc[1]), big.NewInt(tc[2]), false)
		assert.False(t, a.CanFold)
		assert.False(t, a.CanCheck)
		assert.False(t, a.CanCall)
		assert.False(t, a.CanRaise)
		assert.Equal(t, NotYourTurn, a.FoldReason)
		assert.Equal(t, NotYourTurn, a.CheckReason)
		assert.Equal(t, NotYourTurn, a.CallReason)
		assert.Equal(t, NotYourTurn, a.RaiseReason)
		assert.Empty(t, a.Actions())
	}
}

func TestEvaluate_BetMatched(t *testing.T) {
	a := Evaluate(big.NewInt(20), big.NewInt(20), big.NewInt(100), true)
	assert.True(t, a.CanFold)
	assert.True(t, a.CanCheck)
	assert.False(t, a.CanCall)
	assert.Contains(t, a.CallReason, "already matched")
	assert.True(t, a.CanRaise)
	assert.Equal(t, []Action{Fold, Check, Raise}, a.Actions())
	assert.Equal(t, "", a.Reason(Check))
}

func TestEvaluate_MustCall(t *testing.T) {
	a := Evaluate(big.NewInt(20), big.NewInt(50), big.NewInt(100), true)
	assert.True(t, a.CanFold)
	assert.False(t, a.CanCheck)
	assert.Equal(t, "You must call 30 chips first", a.CheckReason)
	assert.True(t, a.CanCall)
	assert.True(t, a.CanRaise)
	assert.Equal(t, []Action{Fold, Call, Raise}, a.Actions())
}

func TestEvaluate_InsufficientChipsToCall(t *testing.T) {
	a := Evaluate(big.NewInt(20), big.NewInt(50), big.NewInt(25), true)
	assert.False(t, a.CanCall)
	assert.Equal(t, "Not enough chips (need 30, have 25)", a.CallReason)
	assert.False(t, a.CanRaise)
	assert.Equal(t, "Not enough chips (need at least 40, have 25)", a.RaiseReason)
	assert.Equal(t, []Action{Fold}, a.Actions())
}

func TestEvaluate_RaiseBoundary(t *testing.T) {
	// exactly the call amount plus the minimum increment
	a := Evaluate(big.NewInt(20), big.NewInt(50), big.NewInt(40), true)
	assert.True(t, a.CanRaise)

	a = Evaluate(big.NewInt(20), big.NewInt(50), big.NewInt(39), true)
	assert.False(t, a.CanRaise)
	assert.True(t, a.CanCall)

	a = Evaluate(big.NewInt(0), big.NewInt(0), big.NewInt(10), true)
	assert.True(t, a.CanRaise)
	assert.True(t, a.CanCheck)
}

func TestEvaluate_ArbitraryPrecision(t *testing.T) {
	huge, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
	gameBet := new(big.Int).Add(huge, big.NewInt(5))
	chips := new(big.Int).Mul(huge, big.NewInt(3))

	a := Evaluate(huge, gameBet, chips, true)
	assert.True(t, a.CanCall)
	assert.True(t, a.CanRaise)
	assert.Equal(t, "You must call 5 chips first", a.CheckReason)

	a = Evaluate(huge, gameBet, big.NewInt(4), true)
	assert.Equal(t, "Not enough chips (need 5, have 4)", a.CallReason)
}

func TestEvaluate_NilIsZero(t *testing.T) {
	a := Evaluate(nil, nil, nil, true)
	assert.True(t, a.CanFold)
	assert.True(t, a.CanCheck)
	assert.False(t, a.CanCall)
	assert.False(t, a.CanRaise)
	assert.Equal(t, "Not enough chips (need at least 10, have 0)", a.RaiseReason)
}

func TestAvailability_Reason(t *testing.T) {
	a := Evaluate(big.NewInt(1), big.NewInt(1), big.NewInt(1), false)
	assert.Equal(t, NotYourTurn, a.Reason(Raise))
	assert.Equal(t, "Unknown is not a valid action", a.Reason(Action(0)))
	assert.False(t, a.Allows(Action(0)))
}

func TestAvailability_Summary(t *testing.T) {
	sum := Evaluate(big.NewInt(20), big.NewInt(50), big.NewInt(25), true).Summary()
	assert.False(t, sum.CanCall)
	assert.Equal(t, []Option{{ID: 1, Name: "Fold", Description: "Fold - Give up this hand"}}, sum.Options)

	sum = Evaluate(nil, nil, big.NewInt(1), false).Summary()
	assert.Empty(t, sum.Options)
	assert.NotNil(t, sum.Options)
}
