package mux

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
)

type healthResponse struct {
	Status   string          `json:"status"`
	Version  string          `json:"version"`
	Wallet   *common.Address `json:"wallet,omitempty"`
	ReadOnly bool            `json:"readOnly"`
}

func (m *Mux) getHealth() http.HandlerFunc {
	payload := healthResponse{
		Status:   "OK",
		Version:  m.version,
		ReadOnly: m.submitter == nil,
	}

	if m.tracker != nil {
		self := m.tracker.Self()
		payload.Wallet = &self
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	}
}
