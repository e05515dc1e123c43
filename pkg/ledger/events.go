package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"fhepoker-client/pkg/action"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// event names as they appear in the ABI
const (
	EventGameCreated  = "GameCreated"
	EventPlayerJoined = "PlayerJoined"
	EventGameStarted  = "GameStarted"
	EventPlayerAction = "PlayerAction"
	EventPhaseChanged = "PhaseChanged"
	EventGameEnded    = "GameEnded"
)

// EventNames lists every event the client subscribes to
var EventNames = []string{
	EventGameCreated,
	EventPlayerJoined,
	EventGameStarted,
	EventPlayerAction,
	EventPhaseChanged,
	EventGameEnded,
}

// ErrUnknownEvent is returned when a log does not belong to a known event
var ErrUnknownEvent = errors.New("unknown event")

// Event is a decoded contract event
type Event interface {
	// Name is the ABI event name
	Name() string

	// Game is the id of the game the event belongs to
	Game() *big.Int

	// arguments returns the indexed then non-indexed values in ABI order
	arguments() (indexed []interface{}, data []interface{})
}

// GameCreated is emitted by createGame()
type GameCreated struct {
	GameID  *big.Int       `json:"gameId"`
	Creator common.Address `json:"creator"`
}

// Name implements Event
func (e *GameCreated) Name() string { return EventGameCreated }

// Game implements Event
func (e *GameCreated) Game() *big.Int { return e.GameID }

func (e *GameCreated) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID, e.Creator}, nil
}

// PlayerJoined is emitted by joinGame()
type PlayerJoined struct {
	GameID      *big.Int       `json:"gameId"`
	Player      common.Address `json:"player"`
	PlayerIndex uint8          `json:"playerIndex"`
}

// Name implements Event
func (e *PlayerJoined) Name() string { return EventPlayerJoined }

// Game implements Event
func (e *PlayerJoined) Game() *big.Int { return e.GameID }

func (e *PlayerJoined) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID, e.Player}, []interface{}{e.PlayerIndex}
}

// GameStarted is emitted by startGame()
type GameStarted struct {
	GameID      *big.Int `json:"gameId"`
	PlayerCount uint8    `json:"playerCount"`
}

// Name implements Event
func (e *GameStarted) Name() string { return EventGameStarted }

// Game implements Event
func (e *GameStarted) Game() *big.Int { return e.GameID }

func (e *GameStarted) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID}, []interface{}{e.PlayerCount}
}

// PlayerAction is emitted by playerAction()
type PlayerAction struct {
	GameID *big.Int       `json:"gameId"`
	Player common.Address `json:"player"`
	Action action.Action  `json:"action"`
	Amount *big.Int       `json:"amount"`
}

// Name implements Event
func (e *PlayerAction) Name() string { return EventPlayerAction }

// Game implements Event
func (e *PlayerAction) Game() *big.Int { return e.GameID }

func (e *PlayerAction) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID, e.Player}, []interface{}{uint8(e.Action), uint32(amountOrZero(e.Amount).Uint64())}
}

// PhaseChanged is emitted whenever a hand moves to a new phase
type PhaseChanged struct {
	GameID   *big.Int `json:"gameId"`
	NewPhase Phase    `json:"newPhase"`
}

// Name implements Event
func (e *PhaseChanged) Name() string { return EventPhaseChanged }

// Game implements Event
func (e *PhaseChanged) Game() *big.Int { return e.GameID }

func (e *PhaseChanged) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID}, []interface{}{uint8(e.NewPhase)}
}

// GameEnded is emitted when a winner is paid
type GameEnded struct {
	GameID   *big.Int       `json:"gameId"`
	Winner   common.Address `json:"winner"`
	Winnings *big.Int       `json:"winnings"`
}

// Name implements Event
func (e *GameEnded) Name() string { return EventGameEnded }

// Game implements Event
func (e *GameEnded) Game() *big.Int { return e.GameID }

func (e *GameEnded) arguments() ([]interface{}, []interface{}) {
	return []interface{}{e.GameID, e.Winner}, []interface{}{uint32(amountOrZero(e.Winnings).Uint64())}
}

// DecodeLog turns a raw contract log into a typed Event
func DecodeLog(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("%w: log has no topics", ErrUnknownEvent)
	}

	ev, err := parsedABI.EventByID(log.Topics[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, log.Topics[0].Hex())
	}

	fields := make(map[string]interface{})
	if err := parsedABI.UnpackIntoMap(fields, ev.Name, log.Data); err != nil {
		return nil, fmt.Errorf("could not unpack %s data: %w", ev.Name, err)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if err := abi.ParseTopicsIntoMap(fields, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("could not parse %s topics: %w", ev.Name, err)
	}

	f := eventFields(fields).reader()

	var decoded Event
	switch ev.Name {
	case EventGameCreated:
		decoded = &GameCreated{
			GameID:  f.bigInt("gameId"),
			Creator: f.address("creator"),
		}
	case EventPlayerJoined:
		decoded = &PlayerJoined{
			GameID:      f.bigInt("gameId"),
			Player:      f.address("player"),
			PlayerIndex: f.uint8("playerIndex"),
		}
	case EventGameStarted:
		decoded = &GameStarted{
			GameID:      f.bigInt("gameId"),
			PlayerCount: f.uint8("playerCount"),
		}
	case EventPlayerAction:
		decoded = &PlayerAction{
			GameID: f.bigInt("gameId"),
			Player: f.address("player"),
			Action: action.Action(f.uint8("action")),
			Amount: f.uint32("amount"),
		}
	case EventPhaseChanged:
		decoded = &PhaseChanged{
			GameID:   f.bigInt("gameId"),
			NewPhase: Phase(f.uint8("newPhase")),
		}
	case EventGameEnded:
		decoded = &GameEnded{
			GameID:   f.bigInt("gameId"),
			Winner:   f.address("winner"),
			Winnings: f.uint32("winnings"),
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, ev.Name)
	}

	if f.err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", ev.Name, f.err)
	}

	return decoded, nil
}

// EncodeLog packs an event into the log the contract would emit
func EncodeLog(contract common.Address, e Event) (types.Log, error) {
	ev, ok := parsedABI.Events[e.Name()]
	if !ok {
		return types.Log{}, fmt.Errorf("%w: %s", ErrUnknownEvent, e.Name())
	}

	indexedValues, dataValues := e.arguments()
	query := make([][]interface{}, len(indexedValues))
	for i, v := range indexedValues {
		query[i] = []interface{}{v}
	}

	topics, err := abi.MakeTopics(query...)
	if err != nil {
		return types.Log{}, err
	}

	data, err := ev.Inputs.NonIndexed().Pack(dataValues...)
	if err != nil {
		return types.Log{}, err
	}

	log := types.Log{
		Address: contract,
		Topics:  []common.Hash{ev.ID},
		Data:    data,
	}

	for _, t := range topics {
		log.Topics = append(log.Topics, t[0])
	}

	return log, nil
}

type eventFields map[string]interface{}

type fieldReader struct {
	fields eventFields
	err    error
}

func (e eventFields) reader() *fieldReader {
	return &fieldReader{fields: e}
}

func (f *fieldReader) missing(key string) {
	if f.err == nil {
		f.err = fmt.Errorf("event field %s has an unexpected type", key)
	}
}

func (f *fieldReader) bigInt(key string) *big.Int {
	if v, ok := f.fields[key].(*big.Int); ok {
		return v
	}

	f.missing(key)
	return new(big.Int)
}

func (f *fieldReader) address(key string) common.Address {
	if v, ok := f.fields[key].(common.Address); ok {
		return v
	}

	f.missing(key)
	return common.Address{}
}

func (f *fieldReader) uint8(key string) uint8 {
	if v, ok := f.fields[key].(uint8); ok {
		return v
	}

	f.missing(key)
	return 0
}

func (f *fieldReader) uint32(key string) *big.Int {
	if v, ok := f.fields[key].(uint32); ok {
		return new(big.Int).SetUint64(uint64(v))
	}

	f.missing(key)
	return new(big.Int)
}

func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return v
}
