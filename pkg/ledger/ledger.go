package ledger

import (
	"context"
	"errors"
	"math/big"

	"fhepoker-client/pkg/action"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrNotDealt is returned when a card handle is still the all-zero sentinel
var ErrNotDealt = errors.New("card has not been dealt")

// GameSnapshot is a point-in-time read of a game
type GameSnapshot struct {
	GameID             *big.Int       `json:"gameId"`
	Phase              Phase          `json:"phase"`
	PlayerCount        int            `json:"playerCount"`
	Pot                *big.Int       `json:"pot"`
	CurrentBet         *big.Int       `json:"currentBet"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex"`
	Creator            common.Address `json:"creator"`
	Winner             common.Address `json:"winner"`
	Winnings           *big.Int       `json:"winnings"`
	DeckIndex          int            `json:"deckIndex"`
	CommunityCards     []int          `json:"communityCards,omitempty"`
}

// IsPlayerTurn returns true if the seat is on the clock
func (g *GameSnapshot) IsPlayerTurn(seat int) bool {
	if g == nil || seat < 0 {
		return false
	}

	return g.Phase.InBettingRound() && g.CurrentPlayerIndex == seat
}

// PlayerSnapshot is a single seat in a game
type PlayerSnapshot struct {
	Address    common.Address `json:"addr"`
	Chips      *big.Int       `json:"chips"`
	CurrentBet *big.Int       `json:"currentBet"`
	Folded     bool           `json:"hasFolded"`
	Active     bool           `json:"isActive"`
}

// Seat returns the index of the address in players, or -1
func Seat(players []*PlayerSnapshot, addr common.Address) int {
	for i, p := range players {
		if p.Address == addr {
			return i
		}
	}

	return -1
}

// GameInfo is the result of getGameInfo()
type GameInfo struct {
	Phase              Phase
	PlayerCount        int
	Pot                *big.Int
	CurrentPlayerIndex int
	CurrentBet         *big.Int
	Creator            common.Address
	Winner             common.Address
	Winnings           *big.Int
}

// GameRecord is the result of games()
type GameRecord struct {
	GameID             *big.Int
	Phase              Phase
	CurrentPlayerIndex int
	Pot                *big.Int
	CurrentBet         *big.Int
	DeckSeed           *big.Int
	DeckIndex          int
	Creator            common.Address
}

// Handle is an opaque reference to an encrypted card
type Handle [32]byte

// IsDealt returns false for the all-zero sentinel
func (h Handle) IsDealt() bool {
	return h != Handle{}
}

// Hex returns the 0x-prefixed handle
func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// MarshalText encodes the handle as hex
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a hex handle
func (h *Handle) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Handle", input, h[:])
}

// ShowdownCards is the result of getShowdownCards()
type ShowdownCards struct {
	Players []common.Address
	Card1   []Handle
	Card2   []Handle
}

// Reader is the read-only view of the contract
type Reader interface {
	GetGameInfo(ctx context.Context, gameID *big.Int) (*GameInfo, error)
	Games(ctx context.Context, gameID *big.Int) (*GameRecord, error)
	GetPlayers(ctx context.Context, gameID *big.Int) ([]*PlayerSnapshot, error)
	GetCommunityCards(ctx context.Context, gameID *big.Int) ([]int, error)
	GetPlayerCards(ctx context.Context, gameID *big.Int, player common.Address) (Handle, Handle, error)
	GetShowdownCards(ctx context.Context, gameID *big.Int) (*ShowdownCards, error)
	GameCounter(ctx context.Context) (*big.Int, error)
}

// Writer submits state-mutating transactions. Each returns the transaction hash
type Writer interface {
	CreateGame(ctx context.Context) (common.Hash, error)
	JoinGame(ctx context.Context, gameID *big.Int) (common.Hash, error)
	StartGame(ctx context.Context, gameID *big.Int) (common.Hash, error)
	PlayerAction(ctx context.Context, gameID *big.Int, act action.Action, raiseAmount *big.Int) (common.Hash, error)
}

// ReceiptStatus is the outcome of a transaction
type ReceiptStatus int

// receipt status constants
const (
	ReceiptPending ReceiptStatus = iota
	ReceiptConfirmed
	ReceiptReverted
)

func (r ReceiptStatus) String() string {
	switch r {
	case ReceiptConfirmed:
		return "confirmed"
	case ReceiptReverted:
		return "reverted"
	}

	return "pending"
}

// ReceiptWatcher waits for a transaction to be mined
type ReceiptWatcher interface {
	// WaitReceipt blocks until the transaction has a receipt or ctx is done
	WaitReceipt(ctx context.Context, hash common.Hash) (ReceiptStatus, error)
}

// LogWatcher streams contract logs
// *ethclient.Client satisfies this interface
type LogWatcher interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Signer signs digests on behalf of a wallet
type Signer interface {
	Address() common.Address
	Sign(digest []byte) ([]byte, error)
}
