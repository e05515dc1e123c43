package mux

import (
	"errors"
	"net/http"

	"fhepoker-client/pkg/lobby"
	"fhepoker-client/pkg/txtracker"
	"github.com/ethereum/go-ethereum/common"
)

type getGamesResponse struct {
	Total int64          `json:"total"`
	Games []*lobby.Entry `json:"games"`
}

func (m *Mux) getGames() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var res getGamesResponse
		m.loop.Do(func() {
			var pending *txtracker.Pending
			if m.tracker != nil {
				pending = m.tracker.Pending()
			}

			res.Total = m.lobby.Total()
			res.Games = m.lobby.Entries(pending)
		})

		writeJSON(w, http.StatusOK, res)
	}
}

func (m *Mux) getGameID() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.pitBoss.GameState(gameIDFromContext(r)))
	}
}

func (m *Mux) getGameIDAvailability() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := r.FormValue("player")
		if !common.IsHexAddress(player) {
			writeJSONError(w, http.StatusBadRequest, errors.New("player must be a wallet address"))
			return
		}

		writeJSON(w, http.StatusOK, m.pitBoss.Availability(gameIDFromContext(r), common.HexToAddress(player)).Summary())
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

func (m *Mux) postGameIDRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.pitBoss.Refresh(gameIDFromContext(r))
		writeJSON(w, http.StatusAccepted, statusResponse{Status: "OK"})
	}
}
