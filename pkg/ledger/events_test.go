package ledger

import (
	"math/big"
	"testing"

	"fhepoker-client/pkg/action"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress(DefaultContractAddress)
	testPlayer   = common.HexToAddress("0xab00000000000000000000000000000000000001")
)

func TestDecodeLog(t *testing.T) {
	events := []Event{
		&GameCreated{GameID: big.NewInt(3), Creator: testPlayer},
		&PlayerJoined{GameID: big.NewInt(3), Player: testPlayer, PlayerIndex: 1},
		&GameStarted{GameID: big.NewInt(3), PlayerCount: 2},
		&PlayerAction{GameID: big.NewInt(3), Player: testPlayer, Action: action.Raise, Amount: big.NewInt(30)},
		&PhaseChanged{GameID: big.NewInt(3), NewPhase: Flop},
		&GameEnded{GameID: big.NewInt(3), Winner: testPlayer, Winnings: big.NewInt(2000)},
	}

	for _, e := range events {
		log, err := EncodeLog(testContract, e)
		require.NoError(t, err, e.Name())
		assert.Equal(t, testContract, log.Address)

		decoded, err := DecodeLog(log)
		require.NoError(t, err, e.Name())
		assert.Equal(t, e.Name(), decoded.Name())
		assert.Equal(t, 0, decoded.Game().Cmp(big.NewInt(3)))
	}
}

func TestDecodeLog_Fields(t *testing.T) {
	log, err := EncodeLog(testContract, &PlayerAction{GameID: big.NewInt(7), Player: testPlayer, Action: action.Call, Amount: big.NewInt(30)})
	require.NoError(t, err)

	decoded, err := DecodeLog(log)
	require.NoError(t, err)

	pa, ok := decoded.(*PlayerAction)
	require.True(t, ok)
	assert.Equal(t, testPlayer, pa.Player)
	assert.Equal(t, action.Call, pa.Action)
	assert.Equal(t, "30", pa.Amount.String())
	assert.Equal(t, "7", pa.GameID.String())
}

func TestDecodeLog_Unknown(t *testing.T) {
	_, err := DecodeLog(types.Log{})
	assert.ErrorIs(t, err, ErrUnknownEvent)

	_, err = DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0x01")}})
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestPhase(t *testing.T) {
	assert.Equal(t, "Waiting", Waiting.String())
	assert.Equal(t, "Phase: Flop", Flop.Label())
	assert.Equal(t, "Phase: Unknown", Phase(9).Label())

	assert.False(t, Waiting.InBettingRound())
	assert.True(t, PreFlop.InBettingRound())
	assert.True(t, Flop.InBettingRound())
	assert.False(t, Showdown.InBettingRound())

	assert.False(t, PreFlop.HasCommunityCards())
	assert.True(t, Flop.HasCommunityCards())

	assert.True(t, Showdown.IsShowdown())
	assert.True(t, Finished.IsShowdown())
	assert.False(t, Flop.IsShowdown())
}

func TestGameSnapshot_IsPlayerTurn(t *testing.T) {
	g := &GameSnapshot{Phase: PreFlop, CurrentPlayerIndex: 1}
	assert.True(t, g.IsPlayerTurn(1))
	assert.False(t, g.IsPlayerTurn(0))
	assert.False(t, g.IsPlayerTurn(-1))

	g.Phase = Showdown
	assert.False(t, g.IsPlayerTurn(1))

	var nilGame *GameSnapshot
	assert.False(t, nilGame.IsPlayerTurn(0))
}

func TestHandle(t *testing.T) {
	var h Handle
	assert.False(t, h.IsDealt())

	h[31] = 1
	assert.True(t, h.IsDealt())
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000001", h.Hex())

	b, err := h.MarshalText()
	assert.NoError(t, err)

	var h2 Handle
	assert.NoError(t, h2.UnmarshalText(b))
	assert.Equal(t, h, h2)
}

func TestSeat(t *testing.T) {
	players := []*PlayerSnapshot{
		{Address: common.HexToAddress("0x01")},
		{Address: testPlayer},
	}

	assert.Equal(t, 1, Seat(players, testPlayer))
	assert.Equal(t, -1, Seat(players, common.HexToAddress("0x02")))
}
