package room

import (
	"math/big"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/holecards"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/playable"
	"fhepoker-client/pkg/poller"
	"fhepoker-client/pkg/reconciler"
	"fhepoker-client/pkg/store"
	"fhepoker-client/pkg/txtracker"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Options are the collaborators shared by every dealer
// Reconciler, Tracker, Instance and Signer are optional
type Options struct {
	Reader     ledger.Reader
	Cache      *store.Cache
	Reconciler *reconciler.Reconciler
	Tracker    *txtracker.Tracker
	Instance   holecards.Instance
	Signer     ledger.Signer
	Contract   common.Address
	Poll       poller.Options
	Logger     logrus.FieldLogger
}

// PitBoss is responsible for dispatching clients to games
// Its state lives on the loop
type PitBoss struct {
	loop    *loop.Loop
	opts    Options
	log     logrus.FieldLogger
	dealers map[string]*Dealer
	cancel  func()
}

// NewPitBoss returns a new dispatch object
func NewPitBoss(l *loop.Loop, opts Options) *PitBoss {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	if opts.Poll.Logger == nil {
		opts.Poll.Logger = opts.Logger
	}

	return &PitBoss{
		loop:    l,
		opts:    opts,
		log:     opts.Logger,
		dealers: make(map[string]*Dealer),
	}
}

// StartShift wires the pit boss to the tracker and the reconciler
func (p *PitBoss) StartShift() {
	p.loop.Exec(func() {
		if t := p.opts.Tracker; t != nil {
			t.OnChange(func(pending *txtracker.Pending) {
				p.broadcast(playable.Push(playable.KeyPendingTransaction, pending))
			})

			t.OnNotify(func(n txtracker.Notification) {
				p.broadcast(playable.Push(playable.KeyNotification, n))
			})

			if r := p.opts.Reconciler; r != nil {
				p.cancel = r.Register(reconciler.All(func(e ledger.Event) {
					if t.Resolve(e) {
						p.log.WithField("event", e.Name()).Debug("pending transaction resolved")
					}
				}))
			}
		}
	})
}

// EndShift stops every dealer
func (p *PitBoss) EndShift() {
	p.loop.Do(func() {
		if p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}

		for key, dealer := range p.dealers {
			dealer.EndShift()
			delete(p.dealers, key)
		}
	})
}

// SetInstance hands a decryption service to every dealer
func (p *PitBoss) SetInstance(instance holecards.Instance) {
	p.loop.Exec(func() {
		p.opts.Instance = instance
		for _, dealer := range p.dealers {
			dealer.setInstance(instance)
		}
	})
}

// NOTE: must only be called from the run loop
func (p *PitBoss) dealer(gameID *big.Int) *Dealer {
	key := gameID.String()
	dealer, found := p.dealers[key]
	if !found {
		dealer = NewDealer(p, gameID)
		dealer.StartShift()
		p.dealers[key] = dealer
	}

	return dealer
}

// NOTE: must only be called from the run loop
func (p *PitBoss) broadcast(res *playable.Response) {
	for _, dealer := range p.dealers {
		dealer.broadcast(res)
	}
}

// ClientConnected is called when a client connects to the server
func (p *PitBoss) ClientConnected(client *Client) {
	p.loop.Exec(func() {
		p.log.WithField("client", client.String()).Debug("client connected")
		p.dealer(client.gameID).AddClient(client)
	})
}

// ClientDisconnected is called when a client disconnects from the server
func (p *PitBoss) ClientDisconnected(client *Client) {
	p.loop.Exec(func() {
		p.log.WithField("client", client.String()).Debug("client disconnected")
		key := client.gameID.String()
		dealer, found := p.dealers[key]
		if !found {
			p.log.WithField("gameId", key).Warn("dealer not found")
			return
		}

		if dealer.RemoveClient(client) {
			dealer.EndShift()
			delete(p.dealers, key)
		}
	})
}

// ReceivedMessage is called when a client sends a message to the server
func (p *PitBoss) ReceivedMessage(client *Client, msg *playable.PayloadIn) {
	p.loop.Exec(func() {
		if client.dealer == nil {
			p.log.WithField("action", msg.Action).Warn("received message, but dealer not found")
			return
		}

		client.dealer.ReceivedMessage(client, msg)
	})
}

// GameState returns the synchronized state of a game, starting to poll it if needed
func (p *PitBoss) GameState(gameID *big.Int) poller.State {
	var s poller.State
	p.loop.Do(func() {
		s = p.dealer(gameID).State()
	})

	return s
}

// Availability evaluates which actions a wallet can take in a game
func (p *PitBoss) Availability(gameID *big.Int, addr common.Address) action.Availability {
	var a action.Availability
	p.loop.Do(func() {
		a = p.dealer(gameID).Availability(addr)
	})

	return a
}

// Refresh polls a game immediately
func (p *PitBoss) Refresh(gameID *big.Int) {
	p.loop.Exec(func() {
		p.dealer(gameID).poller.Refresh()
	})
}

// Games returns the ids of the games being watched
func (p *PitBoss) Games() []string {
	var ids []string
	p.loop.Do(func() {
		for key := range p.dealers {
			ids = append(ids, key)
		}
	})

	return ids
}
