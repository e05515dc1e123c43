// Package store persists the last known state of a game so it survives a restart
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"fhepoker-client/pkg/history"
	"fhepoker-client/pkg/ledger"
	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned when a key does not exist
var ErrNotFound = errors.New("not found")

// key prefixes
const (
	GamePrefix    = "fhe-poker-game-"
	ActionsPrefix = "fhe-poker-actions-"
)

// Store is a durable key-value store
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// GameKey returns the key for a game record
func GameKey(gameID *big.Int) string {
	return GamePrefix + gameID.String()
}

// ActionsKey returns the key for a game's action history
func ActionsKey(gameID *big.Int) string {
	return ActionsPrefix + gameID.String()
}

// GameRecord is the persisted snapshot of a game
type GameRecord struct {
	GameInfo  *ledger.GameSnapshot     `json:"gameInfo"`
	Players   []*ledger.PlayerSnapshot `json:"players"`
	Timestamp time.Time                `json:"timestamp"`
}

// ActionsRecord is the persisted action history of a game
type ActionsRecord struct {
	Actions   []*history.ActionEvent `json:"actionEvents"`
	Timestamp time.Time              `json:"timestamp"`
}

// Cache reads and writes game records
// Failures are logged and otherwise ignored, a broken cache only means a cold start
type Cache struct {
	store Store
	log   logrus.FieldLogger
}

// NewCache returns a cache backed by store
func NewCache(store Store, logger logrus.FieldLogger) *Cache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Cache{
		store: store,
		log:   logger,
	}
}

func (c *Cache) load(ctx context.Context, key string, v interface{}) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.WithError(err).WithField("key", key).Warn("could not read cache")
		}

		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry is corrupt")
		return false
	}

	return true
}

func (c *Cache) save(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("could not encode cache entry")
		return
	}

	if err := c.store.Put(ctx, key, data); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("could not write cache")
	}
}

// LoadGame returns the cached game, or nil if there is none
func (c *Cache) LoadGame(ctx context.Context, gameID *big.Int) *GameRecord {
	var record GameRecord
	if !c.load(ctx, GameKey(gameID), &record) || record.GameInfo == nil {
		return nil
	}

	return &record
}

// LoadActions returns the cached action history
func (c *Cache) LoadActions(ctx context.Context, gameID *big.Int) []*history.ActionEvent {
	var record ActionsRecord
	if !c.load(ctx, ActionsKey(gameID), &record) {
		return nil
	}

	return record.Actions
}

// SaveGame writes the game record
func (c *Cache) SaveGame(ctx context.Context, gameID *big.Int, game *ledger.GameSnapshot, players []*ledger.PlayerSnapshot, now time.Time) {
	c.save(ctx, GameKey(gameID), &GameRecord{
		GameInfo:  game,
		Players:   players,
		Timestamp: now,
	})
}

// SaveActions writes the most recent history.MaxCached actions
func (c *Cache) SaveActions(ctx context.Context, gameID *big.Int, actions []*history.ActionEvent, now time.Time) {
	c.save(ctx, ActionsKey(gameID), &ActionsRecord{
		Actions:   history.Tail(actions, history.MaxCached),
		Timestamp: now,
	})
}

// Memory is a Store that lives for the life of the process
type Memory struct {
	lock sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

// Get implements Store
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}

	return append([]byte(nil), v...), nil
}

// Put implements Store
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Close implements Store
func (m *Memory) Close() error {
	return nil
}
