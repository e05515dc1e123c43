// Package lobby lists the most recent games on the contract
package lobby

import (
	"context"
	"math/big"
	"time"

	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/reconciler"
	"fhepoker-client/pkg/txtracker"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// lobby limits
const (
	MaxPlayers  = 6
	RecentLimit = 10
)

const maxConcurrentReads = 4

// Entry is a single game in the lobby
type Entry struct {
	GameID      *big.Int     `json:"gameId"`
	Phase       ledger.Phase `json:"phase"`
	PhaseName   string       `json:"phaseName"`
	PlayerCount int          `json:"playerCount"`
	Pot         *big.Int     `json:"pot"`
	CanJoin     bool         `json:"canJoin"`
	IsPending   bool         `json:"isPending"`
}

func newEntry(gameID *big.Int, info *ledger.GameInfo) *Entry {
	return &Entry{
		GameID:      gameID,
		Phase:       info.Phase,
		PhaseName:   info.Phase.String(),
		PlayerCount: info.PlayerCount,
		Pot:         info.Pot,
		CanJoin:     info.Phase == ledger.Waiting && info.PlayerCount < MaxPlayers,
	}
}

// Options configures a lobby
type Options struct {
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Lobby keeps the list of recent games
// Every method must be called from the loop passed to New
type Lobby struct {
	reader  ledger.Reader
	exec    loop.Executor
	log     logrus.FieldLogger
	timeout time.Duration

	total   int64
	entries []*Entry

	inFlight bool
	queued   bool

	listeners []func([]*Entry)
}

// New returns an empty lobby. Call Refresh() to load it
func New(reader ledger.Reader, exec loop.Executor, opts Options) *Lobby {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Lobby{
		reader:  reader,
		exec:    exec,
		log:     opts.Logger,
		timeout: opts.Timeout,
	}
}

// OnUpdate registers a listener called after every successful refresh
func (l *Lobby) OnUpdate(fn func([]*Entry)) {
	l.listeners = append(l.listeners, fn)
}

// Total returns the number of games ever created
func (l *Lobby) Total() int64 {
	return l.total
}

// Entries returns the recent games, highest id first
// pending marks the game a join or start transaction is confirming for
func (l *Lobby) Entries(pending *txtracker.Pending) []*Entry {
	entries := make([]*Entry, len(l.entries))
	for i, e := range l.entries {
		cp := *e
		cp.IsPending = isPendingFor(pending, e.GameID)
		entries[i] = &cp
	}

	return entries
}

func isPendingFor(p *txtracker.Pending, gameID *big.Int) bool {
	if p == nil || p.Status != txtracker.StatusConfirming || p.GameID == nil {
		return false
	}

	if p.Kind != txtracker.KindJoin && p.Kind != txtracker.KindStart {
		return false
	}

	return p.GameID.Cmp(gameID) == 0
}

// Handlers refreshes the lobby on every event that changes the list
func (l *Lobby) Handlers() reconciler.Handlers {
	return reconciler.Handlers{
		OnGameCreated:  func(*ledger.GameCreated) { l.Refresh() },
		OnPlayerJoined: func(*ledger.PlayerJoined) { l.Refresh() },
		OnGameStarted:  func(*ledger.GameStarted) { l.Refresh() },
		OnPhaseChanged: func(*ledger.PhaseChanged) { l.Refresh() },
		OnGameEnded:    func(*ledger.GameEnded) { l.Refresh() },
	}
}

// Refresh re-reads the game counter and the recent games
func (l *Lobby) Refresh() {
	if l.inFlight {
		l.queued = true
		return
	}

	l.inFlight = true
	previous := make(map[string]*Entry, len(l.entries))
	for _, e := range l.entries {
		previous[e.GameID.String()] = e
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()

		total, entries, err := l.read(ctx, previous)
		l.exec.Exec(func() {
			l.inFlight = false
			if err != nil {
				l.log.WithError(err).Warn("could not refresh lobby")
			} else {
				l.total = total
				l.entries = entries
				for _, fn := range l.listeners {
					fn(l.Entries(nil))
				}
			}

			if l.queued {
				l.queued = false
				l.Refresh()
			}
		})
	}()
}

// RecentIDs returns up to RecentLimit game ids, highest first
func RecentIDs(total int64) []*big.Int {
	var ids []*big.Int
	for id := total - 1; id >= 0 && len(ids) < RecentLimit; id-- {
		ids = append(ids, big.NewInt(id))
	}

	return ids
}

// read runs off the loop
// A game that cannot be read keeps its previous entry, or is left out
func (l *Lobby) read(ctx context.Context, previous map[string]*Entry) (int64, []*Entry, error) {
	counter, err := l.reader.GameCounter(ctx)
	if err != nil {
		return 0, nil, err
	}

	total := counter.Int64()
	ids := RecentIDs(total)
	found := make([]*Entry, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			info, err := l.reader.GetGameInfo(gctx, id)
			if err != nil {
				l.log.WithError(err).WithField("gameId", id.String()).Warn("could not read lobby game")
				found[i] = previous[id.String()]
				return nil
			}

			found[i] = newEntry(id, info)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, nil, err
	}

	entries := make([]*Entry, 0, len(found))
	for _, e := range found {
		if e != nil {
			entries = append(entries, e)
		}
	}

	return total, entries, nil
}
