package room

import (
	"context"
	"fmt"
	"math/big"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/holecards"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/playable"
	"fhepoker-client/pkg/poller"
	"fhepoker-client/pkg/reconciler"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Dealer keeps one game synchronized and pushes it to the clients watching it
// Every method must be called from the loop
type Dealer struct {
	pitBoss *PitBoss
	gameID  *big.Int
	log     logrus.FieldLogger

	poller    *poller.Poller
	holeCards *holecards.Flow
	showdown  *holecards.Showdown
	clients   map[*Client]bool

	phase    ledger.Phase
	hasPhase bool
	cancel   func()
}

// NewDealer creates a new dealer object
func NewDealer(pitBoss *PitBoss, gameID *big.Int) *Dealer {
	opts := pitBoss.opts
	log := pitBoss.log.WithField("gameId", gameID.String())
	pollOpts := opts.Poll
	pollOpts.Logger = log

	return &Dealer{
		pitBoss:   pitBoss,
		gameID:    gameID,
		log:       log,
		poller:    poller.New(gameID, opts.Reader, opts.Cache, pitBoss.loop, pollOpts),
		holeCards: holecards.New(pitBoss.loop, opts.Contract, log.WithField("flow", "holeCards")),
		showdown:  holecards.NewShowdown(holecards.New(pitBoss.loop, opts.Contract, log.WithField("flow", "showdown"))),
		clients:   make(map[*Client]bool),
	}
}

// StartShift starts polling and listening for events
func (d *Dealer) StartShift() {
	d.log.Debug("dealer starting")

	opts := d.pitBoss.opts
	for _, flow := range []*holecards.Flow{d.holeCards, d.showdown.Flow} {
		flow.SetSigner(opts.Signer)
		flow.SetInstance(opts.Instance)
	}

	d.holeCards.OnChange(func(holecards.Status) {
		res := d.holeCardsResponse()
		for _, client := range d.Clients() {
			if d.isSelf(client.address) {
				client.Send(res)
			}
		}
	})

	d.showdown.OnChange(func(holecards.Status) {
		d.broadcast(d.showdownResponse())
	})

	d.poller.OnUpdate(d.stateUpdated)

	if opts.Reconciler != nil {
		d.cancel = opts.Reconciler.Register(d.handlers())
	}

	d.poller.Start()
}

// EndShift is called when the dealer is no longer needed
func (d *Dealer) EndShift() {
	d.log.Debug("dealer ending")
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.poller.Stop()
}

// Clients will return a slice of connected clients
func (d *Dealer) Clients() []*Client {
	clients := make([]*Client, 0, len(d.clients))
	for client := range d.clients {
		clients = append(clients, client)
	}

	return clients
}

// AddClient adds a client and sends it everything known about the game
func (d *Dealer) AddClient(client *Client) {
	client.dealer = d
	d.clients[client] = true

	client.Send(playable.Push(playable.KeyGameState, d.poller.State()))
	if d.isSelf(client.address) {
		client.Send(d.holeCardsResponse())
	}

	if d.showdown.State() != holecards.NoHandles {
		client.Send(d.showdownResponse())
	}

	if t := d.pitBoss.opts.Tracker; t != nil {
		client.Send(playable.Push(playable.KeyPendingTransaction, t.Pending()))
	}
}

// RemoveClient removes a client
func (d *Dealer) RemoveClient(client *Client) (lastClient bool) {
	delete(d.clients, client)
	client.dealer = nil

	return len(d.clients) == 0
}

// State returns the synchronized game state
func (d *Dealer) State() poller.State {
	return d.poller.State()
}

// Availability evaluates which actions addr can take right now
func (d *Dealer) Availability(addr common.Address) action.Availability {
	s := d.poller.State()
	if s.Game == nil {
		return action.Evaluate(nil, nil, nil, false)
	}

	var bet, chips *big.Int
	seat := ledger.Seat(s.Players, addr)
	if seat >= 0 {
		bet = s.Players[seat].CurrentBet
		chips = s.Players[seat].Chips
	}

	return action.Evaluate(bet, s.Game.CurrentBet, chips, s.Game.IsPlayerTurn(seat))
}

// ReceivedMessage is called when a client sends a message to the server
func (d *Dealer) ReceivedMessage(c *Client, msg *playable.PayloadIn) {
	d.log.WithField("action", msg.Action).Trace("received message")

	switch msg.Action {
	case "refresh":
		d.poller.Refresh()
		c.Send(playable.OK(msg.Context))
	case "history":
		limit, _ := msg.AdditionalData.GetInt("limit")
		res := playable.Push(playable.KeyActions, d.recentActions(limit))
		res.Context = msg.Context
		c.Send(res)
	case "availability":
		addr := c.address
		if s, ok := msg.AdditionalData.GetString("player"); ok {
			if !common.IsHexAddress(s) {
				c.Send(playable.ErrorResponse(msg.Context, fmt.Errorf("invalid address: %s", s)))
				return
			}

			addr = common.HexToAddress(s)
		}

		res := playable.Push(playable.KeyAvailability, d.Availability(addr).Summary())
		res.Context = msg.Context
		c.Send(res)
	case "retryDecrypt":
		d.holeCards.Retry()
		d.showdown.Retry()
		c.Send(playable.OK(msg.Context))
	default:
		d.log.WithField("action", msg.Action).Warn("unknown message")
		c.Send(playable.ErrorResponse(msg.Context, fmt.Errorf("unknown action: %s", msg.Action)))
	}
}

func (d *Dealer) broadcast(res *playable.Response) {
	for _, client := range d.Clients() {
		if !client.Send(res) {
			d.log.WithField("client", client.String()).Warn("client is not keeping up, dropping message")
		}
	}
}

func (d *Dealer) setInstance(instance holecards.Instance) {
	d.holeCards.SetInstance(instance)
	d.showdown.SetInstance(instance)
}

func (d *Dealer) self() common.Address {
	if signer := d.pitBoss.opts.Signer; signer != nil {
		return signer.Address()
	}

	return common.Address{}
}

func (d *Dealer) isSelf(addr common.Address) bool {
	self := d.self()
	return self != (common.Address{}) && addr == self
}

func (d *Dealer) stateUpdated(s poller.State) {
	d.broadcast(playable.Push(playable.KeyGameState, s))
	if s.Game == nil {
		return
	}

	phaseChanged := !d.hasPhase || d.phase != s.Game.Phase
	d.phase = s.Game.Phase
	d.hasPhase = true

	if s.Game.Phase.IsShowdown() && phaseChanged {
		d.showdown.Load(d.pitBoss.opts.Reader, d.gameID)
	}

	if s.Game.Phase >= ledger.PreFlop {
		switch d.holeCards.State() {
		case holecards.NoHandles, holecards.HandlesPending:
			d.loadHoleCards()
		}
	}
}

func (d *Dealer) loadHoleCards() {
	self := d.self()
	if self == (common.Address{}) || ledger.Seat(d.poller.State().Players, self) < 0 {
		return
	}

	reader := d.pitBoss.opts.Reader
	gameID := d.gameID
	d.holeCards.Fetch(func(ctx context.Context) ([]ledger.Handle, error) {
		c1, c2, err := reader.GetPlayerCards(ctx, gameID, self)
		if err != nil {
			return nil, err
		}

		return []ledger.Handle{c1, c2}, nil
	})
}

func (d *Dealer) isGame(e ledger.Event) bool {
	return e.Game() != nil && e.Game().Cmp(d.gameID) == 0
}

func (d *Dealer) handlers() reconciler.Handlers {
	refresh := func(e ledger.Event) {
		if d.isGame(e) {
			d.poller.Refresh()
		}
	}

	return reconciler.Handlers{
		OnGameStarted: func(e *ledger.GameStarted) {
			refresh(e)
			if d.isGame(e) {
				d.loadHoleCards()
			}
		},
		OnPlayerAction: func(e *ledger.PlayerAction) { refresh(e) },
		OnPhaseChanged: func(e *ledger.PhaseChanged) {
			refresh(e)
			if d.isGame(e) {
				d.loadHoleCards()
			}
		},
		OnGameEnded: func(e *ledger.GameEnded) { refresh(e) },
	}
}
