package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"fhepoker-client/pkg/history"
	"fhepoker-client/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Put(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func (brokenStore) Close() error {
	return nil
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "fhe-poker-game-3", GameKey(big.NewInt(3)))
	assert.Equal(t, "fhe-poker-actions-3", ActionsKey(big.NewInt(3)))
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemory(), nil)
	id := big.NewInt(3)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Nil(t, cache.LoadGame(ctx, id))
	assert.Nil(t, cache.LoadActions(ctx, id))

	game := &ledger.GameSnapshot{GameID: id, Phase: ledger.Flop, PlayerCount: 2, Pot: big.NewInt(60), CurrentBet: big.NewInt(20)}
	players := []*ledger.PlayerSnapshot{{Address: common.HexToAddress("0x01"), Chips: big.NewInt(980), CurrentBet: big.NewInt(20)}}
	cache.SaveGame(ctx, id, game, players, now)

	record := cache.LoadGame(ctx, id)
	require.NotNil(t, record)
	assert.Equal(t, ledger.Flop, record.GameInfo.Phase)
	assert.Equal(t, "60", record.GameInfo.Pot.String())
	assert.Equal(t, players[0].Address, record.Players[0].Address)
	assert.True(t, now.Equal(record.Timestamp))
}

func TestCache_ActionsAreTruncated(t *testing.T) {
	ctx := context.Background()
	cache := NewCache(NewMemory(), nil)
	id := big.NewInt(3)

	actions := make([]*history.ActionEvent, 75)
	for i := range actions {
		actions[i] = &history.ActionEvent{ID: fmt.Sprintf("%d", i), Kind: history.KindBet}
	}

	cache.SaveActions(ctx, id, actions, time.Now())
	loaded := cache.LoadActions(ctx, id)
	require.Len(t, loaded, history.MaxCached)
	assert.Equal(t, "25", loaded[0].ID)
	assert.Equal(t, "74", loaded[49].ID)
}

func TestCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	logger, hook := test.NewNullLogger()
	cache := NewCache(mem, logger)
	id := big.NewInt(4)

	require.NoError(t, mem.Put(ctx, GameKey(id), []byte("{not json")))
	require.NoError(t, mem.Put(ctx, ActionsKey(id), []byte("[]")))

	assert.Nil(t, cache.LoadGame(ctx, id))
	assert.Nil(t, cache.LoadActions(ctx, id))
	assert.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestCache_BrokenStore(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	cache := NewCache(brokenStore{}, logger)
	id := big.NewInt(5)

	assert.Nil(t, cache.LoadGame(ctx, id))
	cache.SaveGame(ctx, id, &ledger.GameSnapshot{GameID: id}, nil, time.Now())
	assert.Len(t, hook.AllEntries(), 2)
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	value := []byte("abc")
	assert.NoError(t, m.Put(ctx, "k", value))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.NoError(t, m.Close())
}
