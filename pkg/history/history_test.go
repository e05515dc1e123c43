package history

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/snapshot"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func addr(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(n)))
}

func player(n int, bet int64, folded bool) *ledger.PlayerSnapshot {
	return &ledger.PlayerSnapshot{
		Address:    addr(n),
		Chips:      big.NewInt(1000 - bet),
		CurrentBet: big.NewInt(bet),
		Folded:     folded,
		Active:     true,
	}
}

func game(phase ledger.Phase, count int, currentBet int64) *ledger.GameSnapshot {
	return &ledger.GameSnapshot{
		GameID:      big.NewInt(3),
		Phase:       phase,
		PlayerCount: count,
		Pot:         new(big.Int),
		CurrentBet:  big.NewInt(currentBet),
	}
}

func deterministicIDs(t *testing.T) {
	t.Helper()

	orig := newID
	n := 0
	newID = func() string {
		id := fmt.Sprintf("event-%d", n)
		n++
		return id
	}

	t.Cleanup(func() {
		newID = orig
	})
}

func TestDiff_NoPrevious(t *testing.T) {
	events := Diff(nil, game(ledger.PreFlop, 2, 0), nil, []*ledger.PlayerSnapshot{player(1, 0, false)}, now)
	assert.Empty(t, events)
}

func TestDiff_PhaseOnly(t *testing.T) {
	players := []*ledger.PlayerSnapshot{player(1, 20, false), player(2, 20, false)}
	events := Diff(game(ledger.PreFlop, 2, 20), game(ledger.Flop, 2, 20), players, players, now)

	if assert.Len(t, events, 1) {
		assert.Equal(t, SystemActor, events[0].Player)
		assert.Equal(t, KindPhase, events[0].Kind)
		assert.Contains(t, events[0].Action, "Flop")
		assert.Equal(t, "Phase: Flop", events[0].Action)
		assert.Nil(t, events[0].Amount)
		assert.Equal(t, now, events[0].Timestamp)
	}
}

func TestDiff_Join(t *testing.T) {
	prev := []*ledger.PlayerSnapshot{player(1, 0, false)}
	next := []*ledger.PlayerSnapshot{player(1, 0, false), player(2, 0, false)}

	events := Diff(game(ledger.Waiting, 1, 0), game(ledger.Waiting, 2, 0), prev, next, now)
	if assert.Len(t, events, 1) {
		assert.Equal(t, KindJoin, events[0].Kind)
		assert.Equal(t, addr(2).Hex(), events[0].Player)
		assert.Equal(t, "joined the game", events[0].Action)
	}
}

func TestDiff_Fold(t *testing.T) {
	prev := []*ledger.PlayerSnapshot{player(1, 20, false), player(2, 20, false), player(3, 20, false)}
	next := []*ledger.PlayerSnapshot{player(1, 20, false), player(2, 20, false), player(3, 20, true)}

	events := Diff(game(ledger.PreFlop, 3, 20), game(ledger.PreFlop, 3, 20), prev, next, now)
	if assert.Len(t, events, 1) {
		assert.Equal(t, KindFold, events[0].Kind)
		assert.Equal(t, addr(3).Hex(), events[0].Player)
		assert.Equal(t, "Fold", events[0].Action)
	}
}

func TestDiff_CallAndRaise(t *testing.T) {
	prev := []*ledger.PlayerSnapshot{player(1, 20, false), player(2, 50, false)}
	next := []*ledger.PlayerSnapshot{player(1, 50, false), player(2, 50, false)}

	events := Diff(game(ledger.PreFlop, 2, 50), game(ledger.PreFlop, 2, 50), prev, next, now)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "Call 30", events[0].Action)
		assert.Equal(t, "30", events[0].Amount.String())
		assert.Equal(t, addr(1).Hex(), events[0].Player)
	}

	events = Diff(game(ledger.PreFlop, 2, 50), game(ledger.PreFlop, 2, 80), prev, next, now)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "Raise 30", events[0].Action)
		assert.Equal(t, "30", events[0].Amount.String())
	}
}

func TestDiff_BetResetIsIgnored(t *testing.T) {
	prev := []*ledger.PlayerSnapshot{player(1, 50, false), player(2, 50, false)}
	next := []*ledger.PlayerSnapshot{player(1, 0, false), player(2, 0, false)}

	events := Diff(game(ledger.PreFlop, 2, 50), game(ledger.PreFlop, 2, 0), prev, next, now)
	assert.Empty(t, events)
}

func TestDiff_Ordering(t *testing.T) {
	deterministicIDs(t)

	prev := []*ledger.PlayerSnapshot{player(1, 20, false), player(2, 20, false)}
	next := []*ledger.PlayerSnapshot{player(1, 50, false), player(2, 20, true), player(3, 0, false)}

	events := Diff(game(ledger.PreFlop, 2, 20), game(ledger.Flop, 3, 80), prev, next, now)
	kinds := make([]Kind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}

	assert.Equal(t, []Kind{KindPhase, KindJoin, KindFold, KindBet}, kinds)
	snapshot.Match(t, events)
}

func TestDiff_ThreePolls(t *testing.T) {
	polls := []struct {
		game    *ledger.GameSnapshot
		players []*ledger.PlayerSnapshot
	}{
		{game(ledger.Waiting, 1, 0), []*ledger.PlayerSnapshot{player(1, 0, false)}},
		{game(ledger.Waiting, 2, 0), []*ledger.PlayerSnapshot{player(1, 0, false), {Address: common.HexToAddress("0xAB00000000000000000000000000000000000002")}}},
		{game(ledger.PreFlop, 2, 0), []*ledger.PlayerSnapshot{player(1, 0, false), {Address: common.HexToAddress("0xAB00000000000000000000000000000000000002")}}},
	}

	var history []*ActionEvent
	var prevGame *ledger.GameSnapshot
	var prevPlayers []*ledger.PlayerSnapshot
	for _, p := range polls {
		history = append(history, Diff(prevGame, p.game, prevPlayers, p.players, now)...)
		prevGame, prevPlayers = p.game, p.players
	}

	if assert.Len(t, history, 2) {
		assert.Equal(t, KindJoin, history[0].Kind)
		assert.Equal(t, common.HexToAddress("0xAB00000000000000000000000000000000000002").Hex(), history[0].Player)
		assert.Equal(t, KindPhase, history[1].Kind)
		assert.Equal(t, "Phase: PreFlop", history[1].Action)
	}
}

func TestTail(t *testing.T) {
	events := make([]*ActionEvent, 60)
	for i := range events {
		events[i] = &ActionEvent{ID: fmt.Sprintf("%d", i)}
	}

	tail := Tail(events, MaxCached)
	assert.Len(t, tail, 50)
	assert.Equal(t, "10", tail[0].ID)
	assert.Equal(t, "59", tail[49].ID)

	assert.Len(t, Tail(events[:3], MaxCached), 3)
}

func TestActionEvent_String(t *testing.T) {
	e := &ActionEvent{Player: SystemActor, Action: "Phase: Flop", Icon: iconPhase}
	assert.Equal(t, "🔄 System: Phase: Flop", e.String())
}
