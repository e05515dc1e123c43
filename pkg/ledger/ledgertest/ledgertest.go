// Package ledgertest provides a scripted in-memory contract
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

// ErrScripted is returned by calls failed through FailNext
var ErrScripted = errors.New("scripted failure")

// Address is the contract address the fake ledger emits logs from
var Address = common.HexToAddress(ledger.DefaultContractAddress)

// Submission records a transaction sent to the fake ledger
type Submission struct {
	Method string
	GameID *big.Int
	Action action.Action
	Amount *big.Int
	Hash   common.Hash
}

type game struct {
	info      ledger.GameInfo
	record    ledger.GameRecord
	players   []*ledger.PlayerSnapshot
	community []int
	hands     map[common.Address][2]ledger.Handle
	showdown  *ledger.ShowdownCards
}

// Ledger is a scripted contract implementing ledger.Reader, ledger.Writer,
// ledger.ReceiptWatcher and ledger.LogWatcher
type Ledger struct {
	lock        sync.Mutex
	games       map[string]*game
	counter     int64
	failNext    map[string]error
	reads       map[string]int
	submissions []*Submission
	receipts    map[common.Hash]chan ledger.ReceiptStatus
	subscribers int

	feed event.Feed
}

// New returns an empty ledger
func New() *Ledger {
	return &Ledger{
		games:    make(map[string]*game),
		failNext: make(map[string]error),
		reads:    make(map[string]int),
		receipts: make(map[common.Hash]chan ledger.ReceiptStatus),
	}
}

func (l *Ledger) game(gameID *big.Int) *game {
	key := gameID.String()
	g, ok := l.games[key]
	if !ok {
		g = &game{
			info: ledger.GameInfo{
				Pot:        new(big.Int),
				CurrentBet: new(big.Int),
				Winnings:   new(big.Int),
			},
			record: ledger.GameRecord{
				GameID:     new(big.Int).Set(gameID),
				Pot:        new(big.Int),
				CurrentBet: new(big.Int),
				DeckSeed:   new(big.Int),
			},
			hands: make(map[common.Address][2]ledger.Handle),
		}
		l.games[key] = g
	}

	return g
}

// SetGame scripts the result of getGameInfo() and games()
// Fields of games() that getGameInfo() also returns are kept in sync
func (l *Ledger) SetGame(gameID *big.Int, info ledger.GameInfo) {
	l.lock.Lock()
	defer l.lock.Unlock()

	info.Pot = zeroIfNil(info.Pot)
	info.CurrentBet = zeroIfNil(info.CurrentBet)
	info.Winnings = zeroIfNil(info.Winnings)

	g := l.game(gameID)
	g.info = info
	g.record.Phase = info.Phase
	g.record.CurrentPlayerIndex = info.CurrentPlayerIndex
	g.record.Pot = info.Pot
	g.record.CurrentBet = info.CurrentBet
	g.record.Creator = info.Creator

	if next := gameID.Int64() + 1; next > l.counter {
		l.counter = next
	}
}

// SetDeckIndex scripts the deck index games() returns
func (l *Ledger) SetDeckIndex(gameID *big.Int, deckIndex int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.game(gameID).record.DeckIndex = deckIndex
}

// SetPlayers scripts the result of getPlayers()
func (l *Ledger) SetPlayers(gameID *big.Int, players []*ledger.PlayerSnapshot) {
	l.lock.Lock()
	defer l.lock.Unlock()

	copied := make([]*ledger.PlayerSnapshot, len(players))
	for i, p := range players {
		cp := *p
		cp.Chips = zeroIfNil(cp.Chips)
		cp.CurrentBet = zeroIfNil(cp.CurrentBet)
		copied[i] = &cp
	}

	l.game(gameID).players = copied
}

// SetCommunityCards scripts the result of getCommunityCards()
func (l *Ledger) SetCommunityCards(gameID *big.Int, cards []int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.game(gameID).community = append([]int(nil), cards...)
}

// SetPlayerCards scripts the result of getPlayerCards()
func (l *Ledger) SetPlayerCards(gameID *big.Int, player common.Address, card1, card2 ledger.Handle) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.game(gameID).hands[player] = [2]ledger.Handle{card1, card2}
}

// SetShowdownCards scripts the result of getShowdownCards()
func (l *Ledger) SetShowdownCards(gameID *big.Int, sc *ledger.ShowdownCards) {
	l.lock.Lock()
	defer l.lock.Unlock()

	l.game(gameID).showdown = sc
}

// FailNext makes the next call to method return err
// If err is nil, ErrScripted is used
func (l *Ledger) FailNext(method string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err == nil {
		err = ErrScripted
	}

	l.failNext[method] = err
}

// Reads returns the number of times a read method was called
func (l *Ledger) Reads(method string) int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.reads[method]
}

// Submissions returns every transaction sent so far
func (l *Ledger) Submissions() []*Submission {
	l.lock.Lock()
	defer l.lock.Unlock()

	return append([]*Submission(nil), l.submissions...)
}

// must be called with the lock held
func (l *Ledger) begin(method string) error {
	l.reads[method]++
	if err, ok := l.failNext[method]; ok {
		delete(l.failNext, method)
		return fmt.Errorf("%s: %w", method, err)
	}

	return nil
}

// GetGameInfo implements ledger.Reader
func (l *Ledger) GetGameInfo(_ context.Context, gameID *big.Int) (*ledger.GameInfo, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("getGameInfo"); err != nil {
		return nil, err
	}

	info := l.game(gameID).info
	return &info, nil
}

// Games implements ledger.Reader
func (l *Ledger) Games(_ context.Context, gameID *big.Int) (*ledger.GameRecord, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("games"); err != nil {
		return nil, err
	}

	record := l.game(gameID).record
	return &record, nil
}

// GetPlayers implements ledger.Reader
func (l *Ledger) GetPlayers(_ context.Context, gameID *big.Int) ([]*ledger.PlayerSnapshot, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("getPlayers"); err != nil {
		return nil, err
	}

	players := l.game(gameID).players
	copied := make([]*ledger.PlayerSnapshot, len(players))
	for i, p := range players {
		cp := *p
		copied[i] = &cp
	}

	return copied, nil
}

// GetCommunityCards implements ledger.Reader
func (l *Ledger) GetCommunityCards(_ context.Context, gameID *big.Int) ([]int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("getCommunityCards"); err != nil {
		return nil, err
	}

	return append([]int(nil), l.game(gameID).community...), nil
}

// GetPlayerCards implements ledger.Reader
func (l *Ledger) GetPlayerCards(_ context.Context, gameID *big.Int, player common.Address) (ledger.Handle, ledger.Handle, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("getPlayerCards"); err != nil {
		return ledger.Handle{}, ledger.Handle{}, err
	}

	hand := l.game(gameID).hands[player]
	return hand[0], hand[1], nil
}

// GetShowdownCards implements ledger.Reader
func (l *Ledger) GetShowdownCards(_ context.Context, gameID *big.Int) (*ledger.ShowdownCards, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("getShowdownCards"); err != nil {
		return nil, err
	}

	if sc := l.game(gameID).showdown; sc != nil {
		return sc, nil
	}

	return &ledger.ShowdownCards{}, nil
}

// GameCounter implements ledger.Reader
func (l *Ledger) GameCounter(context.Context) (*big.Int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin("gameCounter"); err != nil {
		return nil, err
	}

	return big.NewInt(l.counter), nil
}

func (l *Ledger) submit(method string, gameID *big.Int, act action.Action, amount *big.Int) (common.Hash, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if err := l.begin(method); err != nil {
		return common.Hash{}, err
	}

	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%d", method, len(l.submissions))))
	l.submissions = append(l.submissions, &Submission{
		Method: method,
		GameID: gameID,
		Action: act,
		Amount: amount,
		Hash:   hash,
	})
	l.receipts[hash] = make(chan ledger.ReceiptStatus, 1)

	return hash, nil
}

// CreateGame implements ledger.Writer
func (l *Ledger) CreateGame(context.Context) (common.Hash, error) {
	return l.submit("createGame", nil, 0, nil)
}

// JoinGame implements ledger.Writer
func (l *Ledger) JoinGame(_ context.Context, gameID *big.Int) (common.Hash, error) {
	return l.submit("joinGame", gameID, 0, nil)
}

// StartGame implements ledger.Writer
func (l *Ledger) StartGame(_ context.Context, gameID *big.Int) (common.Hash, error) {
	return l.submit("startGame", gameID, 0, nil)
}

// PlayerAction implements ledger.Writer
func (l *Ledger) PlayerAction(_ context.Context, gameID *big.Int, act action.Action, raiseAmount *big.Int) (common.Hash, error) {
	return l.submit("playerAction", gameID, act, raiseAmount)
}

func (l *Ledger) receipt(hash common.Hash) chan ledger.ReceiptStatus {
	l.lock.Lock()
	defer l.lock.Unlock()

	ch, ok := l.receipts[hash]
	if !ok {
		ch = make(chan ledger.ReceiptStatus, 1)
		l.receipts[hash] = ch
	}

	return ch
}

// Confirm mines the transaction successfully
func (l *Ledger) Confirm(hash common.Hash) {
	l.receipt(hash) <- ledger.ReceiptConfirmed
}

// Revert mines the transaction as reverted
func (l *Ledger) Revert(hash common.Hash) {
	l.receipt(hash) <- ledger.ReceiptReverted
}

// WaitReceipt implements ledger.ReceiptWatcher
func (l *Ledger) WaitReceipt(ctx context.Context, hash common.Hash) (ledger.ReceiptStatus, error) {
	ch := l.receipt(hash)
	select {
	case status := <-ch:
		// keep the result for any later lookup
		ch <- status
		return status, nil
	case <-ctx.Done():
		return ledger.ReceiptPending, ctx.Err()
	}
}

// SubscribeFilterLogs implements ledger.LogWatcher
func (l *Ledger) SubscribeFilterLogs(_ context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	l.lock.Lock()
	err := l.begin("subscribe")
	l.lock.Unlock()
	if err != nil {
		return nil, err
	}

	for _, addr := range q.Addresses {
		if addr != Address {
			return event.NewSubscription(func(quit <-chan struct{}) error {
				<-quit
				return nil
			}), nil
		}
	}

	sub := l.feed.Subscribe(ch)

	l.lock.Lock()
	l.subscribers++
	l.lock.Unlock()

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer func() {
			l.lock.Lock()
			l.subscribers--
			l.lock.Unlock()
		}()
		defer sub.Unsubscribe()

		select {
		case <-quit:
			return nil
		case err := <-sub.Err():
			return err
		}
	}), nil
}

// Subscribers returns the number of live log subscriptions
func (l *Ledger) Subscribers() int {
	l.lock.Lock()
	defer l.lock.Unlock()

	return l.subscribers
}

// Emit encodes the event and delivers it to every subscriber
// It blocks until every subscriber has received the log
func (l *Ledger) Emit(e ledger.Event) {
	log, err := ledger.EncodeLog(Address, e)
	if err != nil {
		panic(err)
	}

	l.feed.Send(log)
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
