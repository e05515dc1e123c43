// Package ethledger reads and writes the TexasHoldem contract over JSON-RPC
package ethledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ErrReadOnly is returned when a transaction is attempted without a private key
var ErrReadOnly = errors.New("ledger is read-only, no private key configured")

// ErrRaiseTooLarge is returned when the raise amount does not fit the contract's uint32
var ErrRaiseTooLarge = errors.New("raise amount exceeds the contract limit")

// fixed gas limits for the FHE-heavy calls, estimation undershoots them
const (
	startGameGasLimit    = 10_000_000
	playerActionGasLimit = 5_000_000
)

// Backend is everything the ledger needs from a node
// *ethclient.Client satisfies this interface
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Options configures the ledger
type Options struct {
	ContractAddress     common.Address
	ChainID             *big.Int
	PrivateKey          *ecdsa.PrivateKey
	ReceiptPollInterval time.Duration
	Clock               clock.Clock
	Logger              logrus.FieldLogger
}

// Ledger talks to the TexasHoldem contract
type Ledger struct {
	backend  Backend
	contract *bind.BoundContract
	address  common.Address
	chainID  *big.Int
	key      *ecdsa.PrivateKey

	receiptPollInterval time.Duration
	clock               clock.Clock
	log                 logrus.FieldLogger
}

// Dial connects to a node and returns a ledger bound to the contract
func Dial(ctx context.Context, rpcURL string, opts Options) (*Ledger, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("could not dial %s: %w", rpcURL, err)
	}

	if opts.ChainID == nil {
		chainID, err := client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("could not read chain id: %w", err)
		}

		opts.ChainID = chainID
	}

	return New(client, opts), client, nil
}

// New returns a ledger using an existing backend
func New(backend Backend, opts Options) *Ledger {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	if opts.ReceiptPollInterval <= 0 {
		opts.ReceiptPollInterval = 4 * time.Second
	}

	contractABI := ledger.ABI()
	return &Ledger{
		backend:             backend,
		contract:            bind.NewBoundContract(opts.ContractAddress, contractABI, backend, backend, backend),
		address:             opts.ContractAddress,
		chainID:             opts.ChainID,
		key:                 opts.PrivateKey,
		receiptPollInterval: opts.ReceiptPollInterval,
		clock:               opts.Clock,
		log:                 opts.Logger.WithField("contract", opts.ContractAddress.Hex()),
	}
}

// Address returns the contract address
func (l *Ledger) Address() common.Address {
	return l.address
}

// ChainID returns the chain the ledger is bound to
func (l *Ledger) ChainID() *big.Int {
	return l.chainID
}

func (l *Ledger) call(ctx context.Context, method string, params ...interface{}) ([]interface{}, error) {
	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return out, nil
}

// GetGameInfo implements ledger.Reader
func (l *Ledger) GetGameInfo(ctx context.Context, gameID *big.Int) (*ledger.GameInfo, error) {
	out, err := l.call(ctx, "getGameInfo", gameID)
	if err != nil {
		return nil, err
	}

	return &ledger.GameInfo{
		Phase:              ledger.Phase(*abi.ConvertType(out[0], new(uint8)).(*uint8)),
		PlayerCount:        int(*abi.ConvertType(out[1], new(uint8)).(*uint8)),
		Pot:                uint32ToBig(out[2]),
		CurrentPlayerIndex: int(*abi.ConvertType(out[3], new(uint8)).(*uint8)),
		CurrentBet:         uint32ToBig(out[4]),
		Creator:            *abi.ConvertType(out[5], new(common.Address)).(*common.Address),
		Winner:             *abi.ConvertType(out[6], new(common.Address)).(*common.Address),
		Winnings:           uint32ToBig(out[7]),
	}, nil
}

// Games implements ledger.Reader
func (l *Ledger) Games(ctx context.Context, gameID *big.Int) (*ledger.GameRecord, error) {
	out, err := l.call(ctx, "games", gameID)
	if err != nil {
		return nil, err
	}

	return &ledger.GameRecord{
		GameID:             *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Phase:              ledger.Phase(*abi.ConvertType(out[1], new(uint8)).(*uint8)),
		CurrentPlayerIndex: int(*abi.ConvertType(out[2], new(uint8)).(*uint8)),
		Pot:                uint32ToBig(out[3]),
		CurrentBet:         uint32ToBig(out[4]),
		DeckSeed:           *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		DeckIndex:          int(*abi.ConvertType(out[6], new(uint8)).(*uint8)),
		Creator:            *abi.ConvertType(out[7], new(common.Address)).(*common.Address),
	}, nil
}

// GetPlayers implements ledger.Reader
func (l *Ledger) GetPlayers(ctx context.Context, gameID *big.Int) ([]*ledger.PlayerSnapshot, error) {
	out, err := l.call(ctx, "getPlayers", gameID)
	if err != nil {
		return nil, err
	}

	addrs := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	chips := *abi.ConvertType(out[1], new([]uint32)).(*[]uint32)
	bets := *abi.ConvertType(out[2], new([]uint32)).(*[]uint32)
	folded := *abi.ConvertType(out[3], new([]bool)).(*[]bool)
	active := *abi.ConvertType(out[4], new([]bool)).(*[]bool)

	if len(chips) != len(addrs) || len(bets) != len(addrs) || len(folded) != len(addrs) || len(active) != len(addrs) {
		return nil, fmt.Errorf("getPlayers: mismatched array lengths")
	}

	players := make([]*ledger.PlayerSnapshot, len(addrs))
	for i, addr := range addrs {
		players[i] = &ledger.PlayerSnapshot{
			Address:    addr,
			Chips:      new(big.Int).SetUint64(uint64(chips[i])),
			CurrentBet: new(big.Int).SetUint64(uint64(bets[i])),
			Folded:     folded[i],
			Active:     active[i],
		}
	}

	return players, nil
}

// GetCommunityCards implements ledger.Reader
func (l *Ledger) GetCommunityCards(ctx context.Context, gameID *big.Int) ([]int, error) {
	out, err := l.call(ctx, "getCommunityCards", gameID)
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(out[0], new([]uint8)).(*[]uint8)
	cards := make([]int, len(raw))
	for i, c := range raw {
		cards[i] = int(c)
	}

	return cards, nil
}

// GetPlayerCards implements ledger.Reader
func (l *Ledger) GetPlayerCards(ctx context.Context, gameID *big.Int, player common.Address) (ledger.Handle, ledger.Handle, error) {
	out, err := l.call(ctx, "getPlayerCards", gameID, player)
	if err != nil {
		return ledger.Handle{}, ledger.Handle{}, err
	}

	card1 := *abi.ConvertType(out[0], new([32]byte)).(*[32]byte)
	card2 := *abi.ConvertType(out[1], new([32]byte)).(*[32]byte)
	return ledger.Handle(card1), ledger.Handle(card2), nil
}

// GetShowdownCards implements ledger.Reader
func (l *Ledger) GetShowdownCards(ctx context.Context, gameID *big.Int) (*ledger.ShowdownCards, error) {
	out, err := l.call(ctx, "getShowdownCards", gameID)
	if err != nil {
		return nil, err
	}

	addrs := *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address)
	card1s := *abi.ConvertType(out[1], new([][32]byte)).(*[][32]byte)
	card2s := *abi.ConvertType(out[2], new([][32]byte)).(*[][32]byte)
	if len(card1s) != len(addrs) || len(card2s) != len(addrs) {
		return nil, fmt.Errorf("getShowdownCards: mismatched array lengths")
	}

	sc := &ledger.ShowdownCards{
		Players: addrs,
		Card1:   make([]ledger.Handle, len(addrs)),
		Card2:   make([]ledger.Handle, len(addrs)),
	}

	for i := range addrs {
		sc.Card1[i] = ledger.Handle(card1s[i])
		sc.Card2[i] = ledger.Handle(card2s[i])
	}

	return sc, nil
}

// GameCounter implements ledger.Reader
func (l *Ledger) GameCounter(ctx context.Context) (*big.Int, error) {
	out, err := l.call(ctx, "gameCounter")
	if err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (l *Ledger) transact(ctx context.Context, gasLimit uint64, method string, params ...interface{}) (common.Hash, error) {
	if l.key == nil {
		return common.Hash{}, ErrReadOnly
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.key, l.chainID)
	if err != nil {
		return common.Hash{}, err
	}

	opts.Context = ctx
	opts.GasLimit = gasLimit

	tx, err := l.contract.Transact(opts, method, params...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", method, err)
	}

	l.log.WithFields(logrus.Fields{
		"method": method,
		"hash":   tx.Hash().Hex(),
	}).Info("submitted transaction")

	return tx.Hash(), nil
}

// CreateGame implements ledger.Writer
func (l *Ledger) CreateGame(ctx context.Context) (common.Hash, error) {
	return l.transact(ctx, 0, "createGame")
}

// JoinGame implements ledger.Writer
func (l *Ledger) JoinGame(ctx context.Context, gameID *big.Int) (common.Hash, error) {
	return l.transact(ctx, 0, "joinGame", gameID)
}

// StartGame implements ledger.Writer
func (l *Ledger) StartGame(ctx context.Context, gameID *big.Int) (common.Hash, error) {
	return l.transact(ctx, startGameGasLimit, "startGame", gameID)
}

// PlayerAction implements ledger.Writer
func (l *Ledger) PlayerAction(ctx context.Context, gameID *big.Int, act action.Action, raiseAmount *big.Int) (common.Hash, error) {
	if !act.IsValid() {
		return common.Hash{}, fmt.Errorf("%w: %d", action.ErrUnknownAction, act)
	}

	var raise uint32
	if raiseAmount != nil {
		if raiseAmount.Sign() < 0 || !raiseAmount.IsUint64() || raiseAmount.Uint64() > math.MaxUint32 {
			return common.Hash{}, fmt.Errorf("%w: %s", ErrRaiseTooLarge, raiseAmount)
		}

		raise = uint32(raiseAmount.Uint64())
	}

	return l.transact(ctx, playerActionGasLimit, "playerAction", gameID, uint8(act), raise)
}

// WaitReceipt implements ledger.ReceiptWatcher
func (l *Ledger) WaitReceipt(ctx context.Context, hash common.Hash) (ledger.ReceiptStatus, error) {
	log := l.log.WithField("hash", hash.Hex())

	ticker := l.clock.Ticker(l.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				log.Debug("transaction confirmed")
				return ledger.ReceiptConfirmed, nil
			}

			log.Warn("transaction reverted")
			return ledger.ReceiptReverted, nil
		}

		if !errors.Is(err, ethereum.NotFound) {
			log.WithError(err).Warn("could not fetch receipt")
		}

		select {
		case <-ctx.Done():
			return ledger.ReceiptPending, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubscribeFilterLogs implements ledger.LogWatcher
func (l *Ledger) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return l.backend.SubscribeFilterLogs(ctx, q, ch)
}

func uint32ToBig(v interface{}) *big.Int {
	return new(big.Int).SetUint64(uint64(*abi.ConvertType(v, new(uint32)).(*uint32)))
}

// ParsePrivateKey parses a hex private key with or without the 0x prefix
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return key, nil
}
