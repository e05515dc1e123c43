// Package poller keeps a game's snapshot fresh by reading the contract on a fixed schedule
package poller

import (
	"context"
	"math/big"
	"time"

	"fhepoker-client/pkg/deck"
	"fhepoker-client/pkg/history"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/store"
	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is how often a game is re-read
const DefaultInterval = 10 * time.Second

// Options configures a poller
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
	Clock    clock.Clock
	Logger   logrus.FieldLogger
}

// State is the poller's view of a game
type State struct {
	GameID     *big.Int                 `json:"gameId"`
	Game       *ledger.GameSnapshot     `json:"game"`
	Players    []*ledger.PlayerSnapshot `json:"players"`
	Board      []*deck.Card             `json:"board"`
	Actions    []*history.ActionEvent   `json:"actions"`
	LastUpdate time.Time                `json:"lastUpdate"`
	IsLoading  bool                     `json:"isLoading"`
}

// Poller fetches game state, diffs it into action history, and caches it
// Every method must be called from the loop passed to New
type Poller struct {
	gameID   *big.Int
	reader   ledger.Reader
	cache    *store.Cache
	exec     loop.Executor
	clock    clock.Clock
	log      logrus.FieldLogger
	interval time.Duration
	timeout  time.Duration

	game       *ledger.GameSnapshot
	players    []*ledger.PlayerSnapshot
	actions    []*history.ActionEvent
	lastUpdate time.Time
	isLoading  bool
	hydrated   bool

	running    bool
	generation int
	inFlight   bool
	queued     bool
	stop       chan bool
	listeners  []func(State)
}

// New returns a poller for the game. Call Start() from the loop to begin polling
func New(gameID *big.Int, reader ledger.Reader, cache *store.Cache, exec loop.Executor, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	if opts.Timeout <= 0 {
		opts.Timeout = opts.Interval
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Poller{
		gameID:    new(big.Int).Set(gameID),
		reader:    reader,
		cache:     cache,
		exec:      exec,
		clock:     opts.Clock,
		log:       opts.Logger.WithField("gameId", gameID.String()),
		interval:  opts.Interval,
		timeout:   opts.Timeout,
		isLoading: true,
	}
}

// OnUpdate registers a listener called after every successful fetch
func (p *Poller) OnUpdate(fn func(State)) {
	p.listeners = append(p.listeners, fn)
}

// Start hydrates from the cache on the first call, fetches immediately, then on every interval
func (p *Poller) Start() {
	if p.running {
		return
	}

	p.running = true
	p.generation++
	p.hydrate()

	stop := make(chan bool)
	p.stop = stop

	gen := p.generation
	ticker := p.clock.Ticker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.exec.Exec(func() {
					if p.generation == gen {
						p.fetch()
					}
				})
			case <-stop:
				return
			}
		}
	}()

	p.fetch()
}

// Stop cancels the interval. Fetches already in flight are discarded
func (p *Poller) Stop() {
	if !p.running {
		return
	}

	p.running = false
	p.generation++
	p.inFlight = false
	p.queued = false
	close(p.stop)
}

// Refresh fetches immediately
// If a fetch is already in flight, a single follow-up fetch runs once it completes
func (p *Poller) Refresh() {
	if !p.running {
		return
	}

	p.fetch()
}

// State returns the current state
func (p *Poller) State() State {
	return State{
		GameID:     p.gameID,
		Game:       p.game,
		Players:    append([]*ledger.PlayerSnapshot(nil), p.players...),
		Board:      p.board(),
		Actions:    append([]*history.ActionEvent(nil), p.actions...),
		LastUpdate: p.lastUpdate,
		IsLoading:  p.isLoading,
	}
}

// board decodes the community cards, dropping ids outside the deck
func (p *Poller) board() []*deck.Card {
	if p.game == nil {
		return nil
	}

	cards := make([]*deck.Card, 0, len(p.game.CommunityCards))
	for _, id := range p.game.CommunityCards {
		if card, err := deck.FromID(id); err == nil {
			cards = append(cards, card)
		}
	}

	return cards
}

// GameID returns the id of the polled game
func (p *Poller) GameID() *big.Int {
	return p.gameID
}

func (p *Poller) hydrate() {
	if p.hydrated || p.cache == nil {
		return
	}

	p.hydrated = true

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if record := p.cache.LoadGame(ctx, p.gameID); record != nil {
		p.game = record.GameInfo
		p.players = record.Players
		p.lastUpdate = record.Timestamp
		p.log.WithField("lastUpdate", record.Timestamp).Debug("restored game from cache")
	}

	if actions := p.cache.LoadActions(ctx, p.gameID); actions != nil {
		p.actions = actions
	}
}

func (p *Poller) fetch() {
	if p.inFlight {
		p.queued = true
		return
	}

	p.inFlight = true
	gen := p.generation

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		game, players, err := p.read(ctx)
		p.exec.Exec(func() {
			if gen != p.generation {
				return
			}

			p.inFlight = false
			p.isLoading = false
			if err != nil {
				p.log.WithError(err).Warn("could not fetch game state")
			} else {
				p.apply(game, players)
			}

			if p.queued {
				p.queued = false
				p.fetch()
			}
		})
	}()
}

// read runs off the loop
func (p *Poller) read(ctx context.Context) (*ledger.GameSnapshot, []*ledger.PlayerSnapshot, error) {
	var info *ledger.GameInfo
	var record *ledger.GameRecord
	var players []*ledger.PlayerSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		info, err = p.reader.GetGameInfo(gctx, p.gameID)
		return
	})
	g.Go(func() (err error) {
		record, err = p.reader.Games(gctx, p.gameID)
		return
	})
	g.Go(func() (err error) {
		players, err = p.reader.GetPlayers(gctx, p.gameID)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	game := &ledger.GameSnapshot{
		GameID:             p.gameID,
		Phase:              info.Phase,
		PlayerCount:        info.PlayerCount,
		Pot:                info.Pot,
		CurrentBet:         record.CurrentBet,
		CurrentPlayerIndex: record.CurrentPlayerIndex,
		Creator:            record.Creator,
		Winner:             info.Winner,
		Winnings:           info.Winnings,
		DeckIndex:          record.DeckIndex,
	}

	if game.Phase.HasCommunityCards() {
		cards, err := p.reader.GetCommunityCards(ctx, p.gameID)
		if err != nil {
			p.log.WithError(err).Warn("could not fetch community cards")
		} else {
			game.CommunityCards = cards
		}
	}

	return game, players, nil
}

// NOTE: must only be called from the run loop
func (p *Poller) apply(game *ledger.GameSnapshot, players []*ledger.PlayerSnapshot) {
	now := p.clock.Now()

	events := history.Diff(p.game, game, p.players, players, now)
	p.actions = append(p.actions, events...)
	p.game = game
	p.players = players
	p.lastUpdate = now

	for _, e := range events {
		p.log.WithField("event", e.String()).Debug("action detected")
	}

	if p.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		p.cache.SaveGame(ctx, p.gameID, game, players, now)
		p.cache.SaveActions(ctx, p.gameID, p.actions, now)
		cancel()
	}

	state := p.State()
	for _, fn := range p.listeners {
		fn(state)
	}
}
