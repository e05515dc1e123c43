package mux

import (
	"context"
	"errors"
	"testing"
	"time"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/txtracker"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type heldWriter struct {
	ledger.Writer
	entered chan struct{}
	release chan struct{}
}

func (w *heldWriter) CreateGame(ctx context.Context) (common.Hash, error) {
	close(w.entered)
	<-w.release
	return w.Writer.CreateGame(ctx)
}

func Test_postGame_WhileSigning(t *testing.T) {
	h := newHarness(t, false)
	w := &heldWriter{Writer: h.ledger, entered: make(chan struct{}), release: make(chan struct{})}
	h.mux.submitter = txtracker.NewSubmitter(w, h.tracker)

	var res transactionResponse
	done := make(chan struct{})
	go func() {
		defer close(done)
		assertPost(t, h.ts, "/game", nil, &res, 202, h.token)
	}()

	select {
	case <-w.entered:
	case <-time.After(time.Second):
		close(w.release)
		t.Fatal("createGame was not sent")
	}

	// nothing is pending yet but the first submission is still being signed
	assert.Nil(t, h.pending())
	var errObj errorResponse
	assertPost(t, h.ts, "/game/0/join", nil, &errObj, 409, h.token)
	assert.Equal(t, ErrTransactionPending.Error(), errObj.Message)

	close(w.release)
	<-done

	require.Eventually(t, func() bool {
		p := h.pending()
		return p != nil && p.Hash == res.Hash
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, h.ledger.Submissions(), 1)
}

func Test_postGame(t *testing.T) {
	h := newHarness(t, false)

	assertPost(t, h.ts, "/game", nil, nil, 401)

	var res transactionResponse
	assertPost(t, h.ts, "/game", nil, &res, 202, h.token)

	require.Eventually(t, func() bool {
		p := h.pending()
		return p != nil && p.Hash == res.Hash
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, txtracker.KindCreate, h.pending().Kind)

	var errObj errorResponse
	assertPost(t, h.ts, "/game/0/join", nil, &errObj, 409, h.token)
	assert.Equal(t, ErrTransactionPending.Error(), errObj.Message)

	var getRes getTransactionResponse
	assertGet(t, h.ts, "/transaction", &getRes, 200, h.token)
	require.NotNil(t, getRes.Pending)
	assert.Equal(t, res.Hash, getRes.Pending.Hash)

	assertDelete(t, h.ts, "/transaction", 204, h.token)
	assert.Nil(t, h.pending())

	getRes = getTransactionResponse{}
	assertGet(t, h.ts, "/transaction", &getRes, 200, h.token)
	assert.Nil(t, getRes.Pending)
}

func Test_postGameIDJoinAndStart(t *testing.T) {
	h := newHarness(t, false)

	assertPost(t, h.ts, "/game/0/join", nil, nil, 202, h.token)
	require.Eventually(t, func() bool {
		return h.pending() != nil
	}, time.Second, 5*time.Millisecond)
	h.loop.Do(h.tracker.ClearPendingTransaction)

	assertPost(t, h.ts, "/game/0/start", nil, nil, 202, h.token)

	submissions := h.ledger.Submissions()
	require.Len(t, submissions, 2)
	assert.Equal(t, "joinGame", submissions[0].Method)
	assert.Equal(t, "startGame", submissions[1].Method)
	assert.Equal(t, "0", submissions[1].GameID.String())
}

func Test_submitFailure(t *testing.T) {
	h := newHarness(t, false)

	h.ledger.FailNext("joinGame", errors.New("execution reverted: GameFull\nmore detail"))

	var errObj errorResponse
	assertPost(t, h.ts, "/game/0/join", nil, &errObj, 400, h.token)
	assert.Equal(t, "joinGame: execution reverted: GameFull", errObj.Message)
}

func Test_readOnly(t *testing.T) {
	h := newHarness(t, true)

	assertPost(t, h.ts, "/game", nil, nil, 503, h.token)
	assert.Empty(t, h.ledger.Submissions())
}

func Test_postGameIDAction(t *testing.T) {
	h := newHarness(t, false)
	h.waitForGame()

	var errObj errorResponse
	assertPost(t, h.ts, "/game/0/action", `{"action":9}`, &errObj, 400, h.token)
	assert.Equal(t, "unknown action: 9", errObj.Message)

	errObj = errorResponse{}
	assertPost(t, h.ts, "/game/0/action", `{"action":4}`, &errObj, 400, h.token)
	assert.Equal(t, "amount must be greater than zero", errObj.Message)

	errObj = errorResponse{}
	assertPost(t, h.ts, "/game/0/action", `{"action":2}`, &errObj, 400, h.token)
	assert.Equal(t, "cannot Check: You must call 10 chips first", errObj.Message)

	var res transactionResponse
	assertPost(t, h.ts, "/game/0/action", `{"action":4,"amount":40}`, &res, 202, h.token)

	submissions := h.ledger.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, "playerAction", submissions[0].Method)
	assert.Equal(t, action.Raise, submissions[0].Action)
	assert.Equal(t, "40", submissions[0].Amount.String())
	assert.Equal(t, res.Hash, submissions[0].Hash)
}
