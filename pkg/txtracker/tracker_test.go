package txtracker

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/ledger/ledgertest"
	"fhepoker-client/pkg/loop"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	self  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	other = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	hashA = common.HexToHash("0xaaaa")
	hashB = common.HexToHash("0xbbbb")
)

type harness struct {
	t       *testing.T
	tracker *Tracker
	loop    *loop.Loop
	ledger  *ledgertest.Ledger
	clock   *clock.Mock

	notifications []Notification
	changes       []*Pending
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, _ := test.NewNullLogger()
	l := loop.New()
	l.Start()
	t.Cleanup(l.Stop)

	led := ledgertest.New()
	mock := clock.NewMock()
	h := &harness{t: t, loop: l, ledger: led, clock: mock}
	h.tracker = New(l, led, Options{Clock: mock, Logger: logger, Self: self})

	l.Do(func() {
		h.tracker.OnNotify(func(n Notification) {
			h.notifications = append(h.notifications, n)
		})
		h.tracker.OnChange(func(p *Pending) {
			h.changes = append(h.changes, p)
		})
	})

	return h
}

func (h *harness) set(hash common.Hash, kind Kind, gameID *big.Int) {
	h.loop.Do(func() {
		h.tracker.SetPendingTransaction(hash, kind, gameID)
	})
}

func (h *harness) pending() *Pending {
	var p *Pending
	h.loop.Do(func() {
		p = h.tracker.Pending()
	})

	return p
}

func (h *harness) notified() []Notification {
	var n []Notification
	h.loop.Do(func() {
		n = append(n, h.notifications...)
	})

	return n
}

func (h *harness) waitForStatus(status Status) {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		p := h.pending()
		return p != nil && p.Status == status
	}, time.Second, time.Millisecond)
}

func (h *harness) waitForIdle() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.pending() == nil
	}, time.Second, time.Millisecond)
}

// settle gives timer goroutines a chance to post to the loop
func (h *harness) settle() {
	time.Sleep(20 * time.Millisecond)
	h.loop.Do(func() {})
}

func TestTracker_Lifecycle(t *testing.T) {
	h := newHarness(t)

	h.loop.Do(func() {
		assert.Nil(t, h.tracker.Pending())
		assert.False(t, h.tracker.IsConfirming())
		assert.False(t, h.tracker.IsConfirmed())
	})

	h.set(hashA, KindJoin, big.NewInt(3))
	h.waitForStatus(StatusConfirming)

	h.loop.Do(func() {
		assert.True(t, h.tracker.IsConfirming())
	})

	h.ledger.Confirm(hashA)
	h.waitForStatus(StatusConfirmed)

	p := h.pending()
	assert.Equal(t, hashA, p.Hash)
	assert.Equal(t, KindJoin, p.Kind)
	assert.Equal(t, "3", p.GameID.String())

	h.loop.Do(func() {
		assert.True(t, h.tracker.IsConfirmed())
		h.tracker.ClearPendingTransaction()
		assert.Nil(t, h.tracker.Pending())
	})

	h.loop.Do(func() {
		statuses := make([]Status, 0)
		for _, c := range h.changes {
			if c == nil {
				statuses = append(statuses, StatusIdle)
				continue
			}

			statuses = append(statuses, c.Status)
		}

		assert.Equal(t, []Status{StatusSubmitted, StatusConfirming, StatusConfirmed, StatusIdle}, statuses)
	})
}

func TestTracker_ConfirmedFallbackFiresOnce(t *testing.T) {
	h := newHarness(t)

	h.set(hashA, KindCreate, nil)
	h.ledger.Confirm(hashA)
	h.waitForStatus(StatusConfirmed)

	h.clock.Add(59 * time.Second)
	h.settle()
	assert.NotNil(t, h.pending())
	assert.Empty(t, h.notified())

	h.clock.Add(time.Second)
	h.waitForIdle()

	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyConfirmedFallback, notifications[0].Kind)
	assert.Equal(t, MessageConfirmedFallback, notifications[0].Message)
	assert.Equal(t, KindCreate, notifications[0].Action)

	// the stall timer was cancelled with it
	h.clock.Add(5 * time.Minute)
	h.settle()
	assert.Len(t, h.notified(), 1)
}

func TestTracker_StallTimeout(t *testing.T) {
	h := newHarness(t)

	h.set(hashA, KindPlayerAction, big.NewInt(3))
	h.waitForStatus(StatusConfirming)

	h.clock.Add(89 * time.Second)
	h.settle()
	assert.NotNil(t, h.pending())

	h.clock.Add(time.Second)
	h.waitForIdle()

	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyStalled, notifications[0].Kind)
	assert.Contains(t, notifications[0].Message, "taking longer than expected")
	assert.Equal(t, hashA, notifications[0].Hash)

	// a late confirmation does not start the fallback
	h.ledger.Confirm(hashA)
	h.settle()
	h.clock.Add(2 * time.Minute)
	h.settle()
	assert.Nil(t, h.pending())
	assert.Len(t, h.notified(), 1)
}

func TestTracker_StallWinsOverLateConfirmation(t *testing.T) {
	h := newHarness(t)

	h.set(hashA, KindStart, big.NewInt(3))
	h.waitForStatus(StatusConfirming)

	h.clock.Add(50 * time.Second)
	h.ledger.Confirm(hashA)
	h.waitForStatus(StatusConfirmed)

	// fallback is due at 110s, the stall at 90s
	h.clock.Add(40 * time.Second)
	h.waitForIdle()

	h.clock.Add(30 * time.Second)
	h.settle()

	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyStalled, notifications[0].Kind)
}

func TestTracker_Reverted(t *testing.T) {
	h := newHarness(t)

	h.set(hashA, KindPlayerAction, big.NewInt(3))
	h.ledger.Revert(hashA)
	h.waitForIdle()

	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifyFailed, notifications[0].Kind)

	h.clock.Add(5 * time.Minute)
	h.settle()
	assert.Len(t, h.notified(), 1)
}

func TestTracker_LastWriterWins(t *testing.T) {
	h := newHarness(t)

	h.set(hashA, KindJoin, big.NewInt(3))
	h.clock.Add(30 * time.Second)
	h.set(hashB, KindStart, big.NewInt(3))

	// A's stall would have been due here
	h.clock.Add(60 * time.Second)
	h.settle()
	assert.Equal(t, hashB, h.pending().Hash)
	assert.Empty(t, h.notified())

	h.clock.Add(30 * time.Second)
	h.waitForIdle()

	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, hashB, notifications[0].Hash)
}

func TestTracker_Resolve(t *testing.T) {
	gameID := big.NewInt(3)

	tests := []struct {
		name    string
		kind    Kind
		gameID  *big.Int
		event   ledger.Event
		matches bool
	}{
		{"create by self", KindCreate, nil, &ledger.GameCreated{GameID: big.NewInt(9), Creator: self}, true},
		{"create by other", KindCreate, nil, &ledger.GameCreated{GameID: big.NewInt(9), Creator: other}, false},
		{"join by self", KindJoin, gameID, &ledger.PlayerJoined{GameID: gameID, Player: self}, true},
		{"join by other", KindJoin, gameID, &ledger.PlayerJoined{GameID: gameID, Player: other}, false},
		{"start", KindStart, gameID, &ledger.GameStarted{GameID: gameID}, true},
		{"start other game", KindStart, gameID, &ledger.GameStarted{GameID: big.NewInt(4)}, false},
		{"action", KindPlayerAction, gameID, &ledger.PlayerAction{GameID: gameID, Player: other, Action: action.Call}, true},
		{"action other game", KindPlayerAction, gameID, &ledger.PlayerAction{GameID: big.NewInt(4), Action: action.Call}, false},
		{"wrong kind", KindStart, gameID, &ledger.PlayerAction{GameID: gameID, Action: action.Fold}, false},
		{"phase change never matches", KindPlayerAction, gameID, &ledger.PhaseChanged{GameID: gameID}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.set(hashA, tc.kind, tc.gameID)

			var matched bool
			h.loop.Do(func() {
				matched = h.tracker.Resolve(tc.event)
			})

			assert.Equal(t, tc.matches, matched)
			if tc.matches {
				assert.Nil(t, h.pending())

				// every timer went with it
				h.clock.Add(5 * time.Minute)
				h.settle()
				assert.Empty(t, h.notified())
			} else {
				assert.NotNil(t, h.pending())
			}
		})
	}
}

func TestTracker_ResolveWhenIdle(t *testing.T) {
	h := newHarness(t)
	h.loop.Do(func() {
		assert.False(t, h.tracker.Resolve(&ledger.GameStarted{GameID: big.NewInt(1)}))
	})
}

func TestSubmitter(t *testing.T) {
	h := newHarness(t)
	s := NewSubmitter(h.ledger, h.tracker)

	hash, err := s.PlayerAction(context.Background(), big.NewInt(3), action.Raise, big.NewInt(40))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := h.pending()
		return p != nil && p.Hash == hash
	}, time.Second, time.Millisecond)

	submissions := h.ledger.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, "playerAction", submissions[0].Method)
	assert.Equal(t, action.Raise, submissions[0].Action)

	h.ledger.FailNext("startGame", errors.New("User rejected the request."))
	_, err = s.StartGame(context.Background(), big.NewInt(3))
	var ue UserError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, MessageCancelled, ue.Error())

	h.waitForIdle()
	notifications := h.notified()
	require.Len(t, notifications, 1)
	assert.Equal(t, NotifySubmitFailed, notifications[0].Kind)
	assert.Equal(t, MessageCancelled, notifications[0].Message)
	assert.Equal(t, KindStart, notifications[0].Action)
}

func TestSubmitter_AllKinds(t *testing.T) {
	h := newHarness(t)
	s := NewSubmitter(h.ledger, h.tracker)
	ctx := context.Background()

	_, err := s.CreateGame(ctx)
	assert.NoError(t, err)
	_, err = s.JoinGame(ctx, big.NewInt(3))
	assert.NoError(t, err)

	require.Eventually(t, func() bool {
		p := h.pending()
		return p != nil && p.Kind == KindJoin
	}, time.Second, time.Millisecond)

	methods := make([]string, 0)
	for _, sub := range h.ledger.Submissions() {
		methods = append(methods, sub.Method)
	}

	assert.Equal(t, []string{"createGame", "joinGame"}, methods)
}

func TestSubmissionMessage(t *testing.T) {
	assert.Equal(t, "Unknown error", SubmissionMessage(nil))
	assert.Equal(t, "Unknown error", SubmissionMessage(errors.New("")))
	assert.Equal(t, "Unknown error", SubmissionMessage(errors.New("\nsecond line")))
	assert.Equal(t, MessageCancelled, SubmissionMessage(errors.New("MetaMask Tx Signature: User denied transaction signature.")))
	assert.Equal(t, MessageCancelled, SubmissionMessage(errors.New("user rejected action")))
	assert.Equal(t, "execution reverted: NotYourTurn", SubmissionMessage(errors.New("execution reverted: NotYourTurn\nVersion: viem@2")))

	long := strings.Repeat("x", 150)
	assert.Equal(t, strings.Repeat("x", 100), SubmissionMessage(errors.New(long)))
}

func TestPending_JSON(t *testing.T) {
	in := &Pending{Hash: hashA, Kind: KindJoin, GameID: big.NewInt(3), Status: StatusConfirming, SubmittedAt: time.Unix(100, 0).UTC()}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"confirming"`)

	var out Pending
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, StatusConfirming, out.Status)
	assert.Equal(t, KindJoin, out.Kind)
	assert.Equal(t, hashA, out.Hash)

	var s Status
	assert.Error(t, s.UnmarshalText([]byte("mined")))
}
