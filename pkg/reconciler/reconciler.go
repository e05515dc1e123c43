// Package reconciler subscribes to contract events and dispatches them to typed handlers
package reconciler

import (
	"context"
	"errors"
	"math/big"
	"time"

	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// DefaultRetryInterval is how long to wait before resubscribing after a failure
const DefaultRetryInterval = 5 * time.Second

var errSubscriptionClosed = errors.New("subscription closed")

// Handlers receives decoded events. Nil handlers are skipped
type Handlers struct {
	OnGameCreated  func(*ledger.GameCreated)
	OnPlayerJoined func(*ledger.PlayerJoined)
	OnGameStarted  func(*ledger.GameStarted)
	OnPlayerAction func(*ledger.PlayerAction)
	OnPhaseChanged func(*ledger.PhaseChanged)
	OnGameEnded    func(*ledger.GameEnded)
}

// All returns handlers that pass every event to fn
func All(fn func(ledger.Event)) Handlers {
	return Handlers{
		OnGameCreated:  func(e *ledger.GameCreated) { fn(e) },
		OnPlayerJoined: func(e *ledger.PlayerJoined) { fn(e) },
		OnGameStarted:  func(e *ledger.GameStarted) { fn(e) },
		OnPlayerAction: func(e *ledger.PlayerAction) { fn(e) },
		OnPhaseChanged: func(e *ledger.PhaseChanged) { fn(e) },
		OnGameEnded:    func(e *ledger.GameEnded) { fn(e) },
	}
}

func (h Handlers) dispatch(e ledger.Event) {
	switch ev := e.(type) {
	case *ledger.GameCreated:
		if h.OnGameCreated != nil {
			h.OnGameCreated(ev)
		}
	case *ledger.PlayerJoined:
		if h.OnPlayerJoined != nil {
			h.OnPlayerJoined(ev)
		}
	case *ledger.GameStarted:
		if h.OnGameStarted != nil {
			h.OnGameStarted(ev)
		}
	case *ledger.PlayerAction:
		if h.OnPlayerAction != nil {
			h.OnPlayerAction(ev)
		}
	case *ledger.PhaseChanged:
		if h.OnPhaseChanged != nil {
			h.OnPhaseChanged(ev)
		}
	case *ledger.GameEnded:
		if h.OnGameEnded != nil {
			h.OnGameEnded(ev)
		}
	}
}

type registration struct {
	id       int
	handlers Handlers
}

// Options configures a reconciler
type Options struct {
	RetryInterval time.Duration
	Clock         clock.Clock
	Logger        logrus.FieldLogger
}

// Reconciler owns the log subscription for one contract
// Every method must be called from the loop passed to New
type Reconciler struct {
	watcher ledger.LogWatcher
	exec    loop.Executor
	clock   clock.Clock
	log     logrus.FieldLogger
	retry   time.Duration

	chainID    *big.Int
	address    common.Address
	generation int
	cancel     context.CancelFunc

	registrations []*registration
	nextID        int
}

// New returns a reconciler without a target
func New(watcher ledger.LogWatcher, exec loop.Executor, opts Options) *Reconciler {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Reconciler{
		watcher: watcher,
		exec:    exec,
		clock:   opts.Clock,
		log:     opts.Logger,
		retry:   opts.RetryInterval,
	}
}

// SetTarget subscribes to the contract at address on chainID
// Nothing happens until the address is known. Changing either value resubscribes
func (r *Reconciler) SetTarget(chainID *big.Int, address common.Address) {
	if sameChain(r.chainID, chainID) && r.address == address {
		return
	}

	r.unsubscribe()
	r.chainID = chainID
	r.address = address

	if address == (common.Address{}) {
		r.log.Debug("contract address not resolved, not subscribing")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	log := r.log.WithFields(logrus.Fields{
		"contract": address.Hex(),
		"chainId":  chainID,
	})
	log.Info("subscribing to contract events")

	go r.subscribe(ctx, r.generation, address, log)
}

// Close drops the subscription
func (r *Reconciler) Close() {
	r.unsubscribe()
	r.chainID = nil
	r.address = common.Address{}
}

// Register adds handlers and returns the function that removes them
// The returned function must be called from the loop
func (r *Reconciler) Register(h Handlers) (cancel func()) {
	r.nextID++
	id := r.nextID
	r.registrations = append(r.registrations, &registration{id: id, handlers: h})

	return func() {
		for i, reg := range r.registrations {
			if reg.id == id {
				r.registrations = append(r.registrations[:i:i], r.registrations[i+1:]...)
				return
			}
		}
	}
}

// Dispatch decodes a log and hands it to every registered handler
func (r *Reconciler) Dispatch(log types.Log) {
	if log.Removed {
		return
	}

	e, err := ledger.DecodeLog(log)
	if err != nil {
		r.log.WithError(err).WithField("tx", log.TxHash.Hex()).Debug("ignoring log")
		return
	}

	r.log.WithFields(logrus.Fields{
		"event":  e.Name(),
		"gameId": e.Game(),
	}).Debug("received event")

	// handlers may unregister themselves while we iterate
	regs := append([]*registration(nil), r.registrations...)
	for _, reg := range regs {
		reg.handlers.dispatch(e)
	}
}

func (r *Reconciler) unsubscribe() {
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// runs off the loop until ctx is cancelled
func (r *Reconciler) subscribe(ctx context.Context, gen int, address common.Address, log logrus.FieldLogger) {
	contractABI := ledger.ABI()
	topics := make([]common.Hash, 0, len(ledger.EventNames))
	for _, name := range ledger.EventNames {
		topics = append(topics, contractABI.Events[name].ID)
	}

	query := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{topics},
	}

	for {
		ch := make(chan types.Log, 64)
		sub, err := r.watcher.SubscribeFilterLogs(ctx, query, ch)
		if err == nil {
			err = r.pump(ctx, gen, sub, ch)
		}

		if ctx.Err() != nil {
			return
		}

		log.WithError(err).Warn("event subscription failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(r.retry):
		}
	}
}

func (r *Reconciler) pump(ctx context.Context, gen int, sub ethereum.Subscription, ch <-chan types.Log) error {
	defer sub.Unsubscribe()

	for {
		select {
		case l := <-ch:
			r.exec.Exec(func() {
				if gen == r.generation {
					r.Dispatch(l)
				}
			})
		case err := <-sub.Err():
			if err == nil {
				err = errSubscriptionClosed
			}

			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func sameChain(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Cmp(b) == 0
}
