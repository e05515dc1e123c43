// Package txtracker follows the one transaction the client may have outstanding
package txtracker

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// default timeouts
const (
	DefaultConfirmFallback = 60 * time.Second
	DefaultStallTimeout    = 90 * time.Second
)

// notification messages
const (
	MessageConfirmedFallback = "Transaction confirmed! Game list updating..."
	MessageStalled           = "Transaction is taking longer than expected. Please check your wallet or block explorer."
	MessageReverted          = "Transaction failed. The contract rejected it."
)

// Kind is the contract call a transaction was made for
type Kind string

// kind constants
const (
	KindCreate       Kind = "create"
	KindJoin         Kind = "join"
	KindStart        Kind = "start"
	KindPlayerAction Kind = "playerAction"
)

// Status is where a pending transaction is in its lifecycle
type Status int

// status constants
const (
	StatusIdle Status = iota
	StatusSubmitted
	StatusConfirming
	StatusConfirmed
)

func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusConfirming:
		return "confirming"
	case StatusConfirmed:
		return "confirmed"
	}

	return "idle"
}

// MarshalText encodes the status as its name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name
func (s *Status) UnmarshalText(b []byte) error {
	for _, status := range []Status{StatusIdle, StatusSubmitted, StatusConfirming, StatusConfirmed} {
		if status.String() == string(b) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown transaction status: %q", b)
}

// Pending is the transaction currently being tracked
type Pending struct {
	Hash        common.Hash `json:"hash"`
	Kind        Kind        `json:"action"`
	GameID      *big.Int    `json:"gameId,omitempty"`
	Status      Status      `json:"status"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

// NotificationKind describes why a notification was raised
type NotificationKind string

// notification kinds
const (
	NotifyConfirmedFallback NotificationKind = "confirmedFallback"
	NotifyStalled           NotificationKind = "stalled"
	NotifySubmitFailed      NotificationKind = "submitFailed"
	NotifyFailed            NotificationKind = "failed"
)

// Notification is a one-off message for the user
type Notification struct {
	Kind    NotificationKind `json:"kind"`
	Action  Kind             `json:"action"`
	GameID  *big.Int         `json:"gameId,omitempty"`
	Hash    common.Hash      `json:"hash"`
	Message string           `json:"message"`
}

// Options configures a tracker
type Options struct {
	ConfirmFallback time.Duration
	StallTimeout    time.Duration
	Clock           clock.Clock
	Logger          logrus.FieldLogger

	// Self is the local wallet address, used to match events to the pending transaction
	Self common.Address
}

// Tracker holds at most one pending transaction
// Three things race to clear it: a matching contract event, the confirmed fallback
// timer, and the stall timer. Whichever happens first cancels the others
// Every method must be called from the loop passed to New
type Tracker struct {
	exec            loop.Executor
	watcher         ledger.ReceiptWatcher
	clock           clock.Clock
	log             logrus.FieldLogger
	confirmFallback time.Duration
	stallTimeout    time.Duration
	self            common.Address

	pending       *Pending
	generation    int
	stallTimer    *clock.Timer
	fallbackTimer *clock.Timer
	cancelWatch   context.CancelFunc

	changeListeners []func(*Pending)
	notifyListeners []func(Notification)
}

// New returns an idle tracker
func New(exec loop.Executor, watcher ledger.ReceiptWatcher, opts Options) *Tracker {
	if opts.ConfirmFallback <= 0 {
		opts.ConfirmFallback = DefaultConfirmFallback
	}

	if opts.StallTimeout <= 0 {
		opts.StallTimeout = DefaultStallTimeout
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Tracker{
		exec:            exec,
		watcher:         watcher,
		clock:           opts.Clock,
		log:             opts.Logger,
		confirmFallback: opts.ConfirmFallback,
		stallTimeout:    opts.StallTimeout,
		self:            opts.Self,
	}
}

// Self returns the local wallet address
func (t *Tracker) Self() common.Address {
	return t.self
}

// OnChange registers a listener for every change of the pending transaction
// The listener receives nil when the tracker goes idle
func (t *Tracker) OnChange(fn func(*Pending)) {
	t.changeListeners = append(t.changeListeners, fn)
}

// OnNotify registers a listener for notifications
func (t *Tracker) OnNotify(fn func(Notification)) {
	t.notifyListeners = append(t.notifyListeners, fn)
}

// Pending returns a copy of the pending transaction, or nil
func (t *Tracker) Pending() *Pending {
	if t.pending == nil {
		return nil
	}

	p := *t.pending
	return &p
}

// IsConfirming returns true while the receipt is being looked up
func (t *Tracker) IsConfirming() bool {
	return t.pending != nil && t.pending.Status == StatusConfirming
}

// IsConfirmed returns true once the transaction was mined successfully
func (t *Tracker) IsConfirmed() bool {
	return t.pending != nil && t.pending.Status == StatusConfirmed
}

// SetPendingTransaction starts tracking a transaction, replacing any prior one
func (t *Tracker) SetPendingTransaction(hash common.Hash, kind Kind, gameID *big.Int) {
	t.reset()

	t.pending = &Pending{
		Hash:        hash,
		Kind:        kind,
		GameID:      gameID,
		Status:      StatusSubmitted,
		SubmittedAt: t.clock.Now(),
	}

	log := t.logger()
	log.Debug("tracking transaction")

	gen := t.generation
	t.stallTimer = t.clock.AfterFunc(t.stallTimeout, func() {
		t.exec.Exec(func() {
			if gen == t.generation {
				t.expire(NotifyStalled, MessageStalled)
			}
		})
	})

	if t.watcher != nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancelWatch = cancel
		go t.watch(ctx, gen, hash)
	}

	t.changed()
}

// ClearPendingTransaction stops tracking and cancels every timer
func (t *Tracker) ClearPendingTransaction() {
	if t.pending == nil {
		return
	}

	t.logger().Debug("clearing transaction")
	t.reset()
	t.changed()
}

// Resolve clears the pending transaction if the event is the one it was waiting for
// It returns true if the event matched
func (t *Tracker) Resolve(e ledger.Event) bool {
	if t.pending == nil || !t.matches(e) {
		return false
	}

	t.logger().WithField("event", e.Name()).Info("transaction resolved by event")
	t.ClearPendingTransaction()
	return true
}

func (t *Tracker) matches(e ledger.Event) bool {
	p := t.pending
	switch ev := e.(type) {
	case *ledger.GameCreated:
		return p.Kind == KindCreate && ev.Creator == t.self
	case *ledger.PlayerJoined:
		return p.Kind == KindJoin && ev.Player == t.self
	case *ledger.GameStarted:
		return p.Kind == KindStart && sameGame(p.GameID, ev.GameID)
	case *ledger.PlayerAction:
		return p.Kind == KindPlayerAction && sameGame(p.GameID, ev.GameID)
	}

	return false
}

func sameGame(a, b *big.Int) bool {
	return a != nil && b != nil && a.Cmp(b) == 0
}

// runs off the loop
func (t *Tracker) watch(ctx context.Context, gen int, hash common.Hash) {
	t.exec.Exec(func() {
		if gen == t.generation && t.pending.Status == StatusSubmitted {
			t.pending.Status = StatusConfirming
			t.changed()
		}
	})

	status, err := t.watcher.WaitReceipt(ctx, hash)
	if err != nil {
		if ctx.Err() == nil {
			t.log.WithError(err).WithField("hash", hash.Hex()).Warn("could not watch receipt")
		}

		return
	}

	t.exec.Exec(func() {
		if gen != t.generation {
			return
		}

		switch status {
		case ledger.ReceiptConfirmed:
			t.confirmed()
		case ledger.ReceiptReverted:
			t.expire(NotifyFailed, MessageReverted)
		}
	})
}

// NOTE: must only be called from the run loop
func (t *Tracker) confirmed() {
	t.pending.Status = StatusConfirmed
	t.logger().Debug("transaction confirmed")

	if t.fallbackTimer == nil {
		gen := t.generation
		t.fallbackTimer = t.clock.AfterFunc(t.confirmFallback, func() {
			t.exec.Exec(func() {
				if gen == t.generation {
					t.expire(NotifyConfirmedFallback, MessageConfirmedFallback)
				}
			})
		})
	}

	t.changed()
}

// expire clears the transaction and tells the user why
// NOTE: must only be called from the run loop
func (t *Tracker) expire(kind NotificationKind, message string) {
	p := t.pending
	t.logger().WithField("reason", kind).Warn("clearing transaction")

	t.reset()
	t.changed()
	t.notify(Notification{
		Kind:    kind,
		Action:  p.Kind,
		GameID:  p.GameID,
		Hash:    p.Hash,
		Message: message,
	})
}

// reset drops the pending transaction without telling anybody
func (t *Tracker) reset() {
	t.generation++
	t.pending = nil

	if t.stallTimer != nil {
		t.stallTimer.Stop()
		t.stallTimer = nil
	}

	if t.fallbackTimer != nil {
		t.fallbackTimer.Stop()
		t.fallbackTimer = nil
	}

	if t.cancelWatch != nil {
		t.cancelWatch()
		t.cancelWatch = nil
	}
}

func (t *Tracker) changed() {
	p := t.Pending()
	for _, fn := range t.changeListeners {
		fn(p)
	}
}

func (t *Tracker) notify(n Notification) {
	for _, fn := range t.notifyListeners {
		fn(n)
	}
}

func (t *Tracker) logger() logrus.FieldLogger {
	if t.pending == nil {
		return t.log
	}

	log := t.log.WithFields(logrus.Fields{
		"hash":   t.pending.Hash.Hex(),
		"action": t.pending.Kind,
	})

	if t.pending.GameID != nil {
		log = log.WithField("gameId", t.pending.GameID.String())
	}

	return log
}
