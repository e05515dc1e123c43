package mux

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/txtracker"
	"github.com/ethereum/go-ethereum/common"
)

// ErrTransactionPending is returned while an earlier transaction is outstanding
var ErrTransactionPending = errors.New("a transaction is already pending")

// ErrReadOnly is returned when the client has no key to sign with
var ErrReadOnly = errors.New("no private key is configured")

type transactionResponse struct {
	Hash common.Hash `json:"hash"`
}

type getTransactionResponse struct {
	Pending *txtracker.Pending `json:"pending"`
}

func (m *Mux) getTransaction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res getTransactionResponse
		m.loop.Do(func() {
			res.Pending = m.tracker.Pending()
		})

		writeJSON(w, http.StatusOK, res)
	}
}

func (m *Mux) deleteTransaction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.loop.Do(m.tracker.ClearPendingTransaction)
		w.WriteHeader(http.StatusNoContent)
	}
}

// submit rejects the request if a transaction is in flight or being signed, otherwise sends it
func (m *Mux) submit(w http.ResponseWriter, r *http.Request, send func(ctx context.Context) (common.Hash, error)) {
	if m.submitter == nil {
		writeJSONError(w, http.StatusServiceUnavailable, ErrReadOnly)
		return
	}

	var busy bool
	m.loop.Do(func() {
		if m.submitting || m.tracker.Pending() != nil {
			busy = true
			return
		}

		m.submitting = true
	})

	if busy {
		writeJSONError(w, http.StatusConflict, ErrTransactionPending)
		return
	}

	// the submitter queues the pending transaction before send returns
	defer m.loop.Exec(func() {
		m.submitting = false
	})

	hash, err := send(r.Context())
	if err != nil {
		writeMaybeUserError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, transactionResponse{Hash: hash})
}

func (m *Mux) postGame() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.submit(w, r, func(ctx context.Context) (common.Hash, error) {
			return m.submitter.CreateGame(ctx)
		})
	}
}

func (m *Mux) postGameIDJoin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := gameIDFromContext(r)
		m.submit(w, r, func(ctx context.Context) (common.Hash, error) {
			return m.submitter.JoinGame(ctx, gameID)
		})
	}
}

func (m *Mux) postGameIDStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := gameIDFromContext(r)
		m.submit(w, r, func(ctx context.Context) (common.Hash, error) {
			return m.submitter.StartGame(ctx, gameID)
		})
	}
}

type postGameIDActionPayload struct {
	Action int      `json:"action"`
	Amount *big.Int `json:"amount"`
}

func (m *Mux) postGameIDAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pp postGameIDActionPayload
		if !decodeRequest(w, r, &pp) {
			return
		}

		act, err := action.FromCode(pp.Action)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}

		amount := new(big.Int)
		if act == action.Raise {
			if pp.Amount == nil || pp.Amount.Sign() <= 0 {
				writeJSONError(w, http.StatusBadRequest, errors.New("amount must be greater than zero"))
				return
			}

			amount = pp.Amount
		}

		gameID := gameIDFromContext(r)
		addr := r.Context().Value(ctxAddressKey).(common.Address)
		if a := m.pitBoss.Availability(gameID, addr); !a.Allows(act) {
			writeJSONError(w, http.StatusBadRequest, fmt.Errorf("cannot %s: %s", act.String(), a.Reason(act)))
			return
		}

		m.submit(w, r, func(ctx context.Context) (common.Hash, error) {
			return m.submitter.PlayerAction(ctx, gameID, act, amount)
		})
	}
}
