// Package holecards decrypts encrypted card handles once the wallet and the
// decryption service are both available
package holecards

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"fhepoker-client/pkg/deck"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// ErrMissingValues is the message shown when the service skipped some handles
const ErrMissingValues = "decryption returned no value for one or more cards"

// State is where a set of handles is in the decryption lifecycle
type State int

// state constants
const (
	NoHandles State = iota
	HandlesPending
	ReadyToDecrypt
	Decrypting
	Decrypted
	Error
)

func (s State) String() string {
	switch s {
	case HandlesPending:
		return "handlesPending"
	case ReadyToDecrypt:
		return "readyToDecrypt"
	case Decrypting:
		return "decrypting"
	case Decrypted:
		return "decrypted"
	case Error:
		return "error"
	}

	return "noHandles"
}

// MarshalText encodes the state as its name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st := NoHandles; st <= Error; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown decryption state: %q", b)
}

// Request is a single decryption call
type Request struct {
	Handles  []ledger.Handle
	Contract common.Address
	Signer   ledger.Signer
}

// Instance is a live connection to the decryption service
type Instance interface {
	// Decrypt returns the clear value of each handle it could decrypt
	Decrypt(ctx context.Context, req Request) (map[ledger.Handle]*big.Int, error)
}

// Status is a snapshot of a flow
type Status struct {
	State   State           `json:"state"`
	Handles []ledger.Handle `json:"handles"`
	Cards   []*deck.Card    `json:"cards"`
	Error   string          `json:"error,omitempty"`
}

// Flow decrypts one set of handles
// Every method must be called from the loop passed to New
type Flow struct {
	exec     loop.Executor
	log      logrus.FieldLogger
	contract common.Address
	timeout  time.Duration

	handles  []ledger.Handle
	instance Instance
	signer   ledger.Signer

	state      State
	err        string
	results    map[ledger.Handle]*big.Int
	generation int
	fetchGen   int

	listeners []func(Status)
}

// New returns a flow with no handles
func New(exec loop.Executor, contract common.Address, logger logrus.FieldLogger) *Flow {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Flow{
		exec:     exec,
		log:      logger,
		contract: contract,
		timeout:  time.Minute,
		results:  make(map[ledger.Handle]*big.Int),
	}
}

// OnChange registers a listener for state changes
func (f *Flow) OnChange(fn func(Status)) {
	f.listeners = append(f.listeners, fn)
}

// State returns the current state
func (f *Flow) State() State {
	return f.state
}

// SetInstance sets or clears the decryption service
func (f *Flow) SetInstance(instance Instance) {
	f.instance = instance
	f.evaluate()
}

// SetSigner sets or clears the wallet used to authorize decryption
func (f *Flow) SetSigner(signer ledger.Signer) {
	f.signer = signer
	f.evaluate()
}

// SetHandles replaces the handles to decrypt
// Setting the same handles again does nothing
func (f *Flow) SetHandles(handles ...ledger.Handle) {
	if sameHandles(f.handles, handles) {
		f.evaluate()
		return
	}

	f.generation++
	f.handles = append([]ledger.Handle(nil), handles...)
	f.state = NoHandles
	f.err = ""
	f.evaluate()
	f.changed()
}

// Fetch reads the handles off the loop and then sets them
// A failed read leaves the flow as it was
func (f *Flow) Fetch(fetch func(ctx context.Context) ([]ledger.Handle, error)) {
	f.fetchGen++
	gen := f.fetchGen

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		handles, err := fetch(ctx)
		f.exec.Exec(func() {
			if gen != f.fetchGen {
				return
			}

			if err != nil {
				f.log.WithError(err).Warn("could not fetch card handles")
				return
			}

			f.SetHandles(handles...)
		})
	}()
}

// Retry tries again after a failed decryption
func (f *Flow) Retry() {
	if f.state != Error {
		return
	}

	f.err = ""
	f.state = HandlesPending
	f.evaluate()
	f.changed()
}

// Value returns the decrypted value of a handle
// false means the handle has not been decrypted yet
func (f *Flow) Value(h ledger.Handle) (*big.Int, bool) {
	v, ok := f.results[h]
	return v, ok
}

// Card returns the decrypted card for a handle, or nil
func (f *Flow) Card(h ledger.Handle) *deck.Card {
	v, ok := f.results[h]
	if !ok || !v.IsInt64() {
		return nil
	}

	card, err := deck.FromID(int(v.Int64()))
	if err != nil {
		f.log.WithError(err).WithField("handle", h.Hex()).Warn("decrypted value is not a card")
		return nil
	}

	return card
}

// Status returns a snapshot of the flow
func (f *Flow) Status() Status {
	cards := make([]*deck.Card, len(f.handles))
	for i, h := range f.handles {
		cards[i] = f.Card(h)
	}

	return Status{
		State:   f.state,
		Handles: append([]ledger.Handle(nil), f.handles...),
		Cards:   cards,
		Error:   f.err,
	}
}

func (f *Flow) evaluate() {
	switch f.state {
	case Decrypting, Decrypted, Error:
		return
	}

	prev := f.state
	f.state = f.readiness()
	if f.state == ReadyToDecrypt {
		f.decrypt()
		return
	}

	if f.state != prev {
		f.changed()
	}
}

func (f *Flow) readiness() State {
	if len(f.handles) == 0 {
		return NoHandles
	}

	for _, h := range f.handles {
		if !h.IsDealt() {
			return HandlesPending
		}
	}

	if f.allDecrypted() {
		return Decrypted
	}

	if f.instance == nil || f.signer == nil {
		return HandlesPending
	}

	return ReadyToDecrypt
}

func (f *Flow) allDecrypted() bool {
	for _, h := range f.handles {
		if _, ok := f.results[h]; !ok {
			return false
		}
	}

	return true
}

// NOTE: must only be called from the run loop
func (f *Flow) decrypt() {
	f.state = Decrypting
	f.changed()

	gen := f.generation
	req := Request{
		Contract: f.contract,
		Signer:   f.signer,
	}

	for _, h := range f.handles {
		if _, ok := f.results[h]; !ok {
			req.Handles = append(req.Handles, h)
		}
	}

	instance := f.instance
	log := f.log.WithField("handles", len(req.Handles))
	log.Debug("decrypting")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		defer cancel()

		values, err := instance.Decrypt(ctx, req)
		f.exec.Exec(func() {
			if gen != f.generation {
				return
			}

			if err != nil {
				log.WithError(err).Warn("decryption failed")
				f.fail(fmt.Sprintf("Failed to decrypt cards: %s", err))
				return
			}

			for h, v := range values {
				if v != nil {
					f.results[h] = v
				}
			}

			if !f.allDecrypted() {
				f.fail(ErrMissingValues)
				return
			}

			f.state = Decrypted
			f.changed()
		})
	}()
}

func (f *Flow) fail(msg string) {
	f.state = Error
	f.err = msg
	f.changed()
}

func (f *Flow) changed() {
	s := f.Status()
	for _, fn := range f.listeners {
		fn(s)
	}
}

func sameHandles(a, b []ledger.Handle) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
