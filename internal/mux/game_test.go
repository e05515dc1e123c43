package mux

import (
	"math/big"
	"testing"
	"time"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_getGames(t *testing.T) {
	h := newHarness(t, false)
	h.ledger.SetGame(big.NewInt(1), ledger.GameInfo{Phase: ledger.Waiting, PlayerCount: 1, Pot: big.NewInt(0)})

	var res getGamesResponse
	assertGet(t, h.ts, "/games", &res, 200)
	assert.Equal(t, int64(0), res.Total)
	assert.Empty(t, res.Games)

	h.loop.Exec(h.lobby.Refresh)
	require.Eventually(t, func() bool {
		var total int64
		h.loop.Do(func() {
			total = h.lobby.Total()
		})
		return total == 2
	}, time.Second, 5*time.Millisecond)

	res = getGamesResponse{}
	assertGet(t, h.ts, "/games", &res, 200)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Games, 2)
	assert.Equal(t, "1", res.Games[0].GameID.String())
	assert.True(t, res.Games[0].CanJoin)
	assert.Equal(t, "0", res.Games[1].GameID.String())
	assert.False(t, res.Games[1].CanJoin)
}

func Test_getGameID(t *testing.T) {
	h := newHarness(t, false)
	h.waitForGame()

	var res struct {
		GameID  *big.Int `json:"gameId"`
		Players []struct {
			Address common.Address `json:"addr"`
		} `json:"players"`
	}

	assertGet(t, h.ts, "/game/0", &res, 200)
	assert.Equal(t, "0", res.GameID.String())
	require.Len(t, res.Players, 2)
	assert.Equal(t, self, res.Players[0].Address)

	assertGet(t, h.ts, "/game/abc", nil, 404)
}

func Test_getGameIDAvailability(t *testing.T) {
	h := newHarness(t, false)
	h.waitForGame()

	var errObj errorResponse
	assertGet(t, h.ts, "/game/0/availability", &errObj, 400)
	assert.Equal(t, "player must be a wallet address", errObj.Message)

	var a action.Summary
	assertGet(t, h.ts, "/game/0/availability?player="+self.Hex(), &a, 200)
	assert.True(t, a.CanCall)
	assert.False(t, a.CanCheck)
	require.NotEmpty(t, a.Options)
	assert.Equal(t, action.Option{ID: 1, Name: "Fold", Description: "Fold - Give up this hand"}, a.Options[0])
	assert.Contains(t, a.Options, action.Option{ID: 3, Name: "Call", Description: "Call - Match the current bet"})

	a = action.Summary{}
	assertGet(t, h.ts, "/game/0/availability?player="+other.Hex(), &a, 200)
	assert.False(t, a.CanCall)
	assert.Equal(t, action.NotYourTurn, a.CallReason)
	assert.Empty(t, a.Options)
}

func Test_postGameIDRefresh(t *testing.T) {
	h := newHarness(t, false)
	h.waitForGame()
	before := h.ledger.Reads("getGameInfo")

	var res statusResponse
	assertPost(t, h.ts, "/game/0/refresh", nil, &res, 202)
	assert.Equal(t, "OK", res.Status)

	require.Eventually(t, func() bool {
		return h.ledger.Reads("getGameInfo") > before
	}, time.Second, 5*time.Millisecond)
}
