package room

import (
	"fhepoker-client/pkg/holecards"
	"fhepoker-client/pkg/playable"
	"github.com/ethereum/go-ethereum/common"
)

type showdownResponse struct {
	State   holecards.State           `json:"state"`
	Hands   []*holecards.Hand         `json:"hands"`
	CardIDs map[common.Address][2]int `json:"cardIds"`
	Error   string                    `json:"error,omitempty"`
}

func (d *Dealer) showdownResponse() *playable.Response {
	status := d.showdown.Status()
	return playable.Push(playable.KeyShowdown, &showdownResponse{
		State:   status.State,
		Hands:   d.showdown.Hands(),
		CardIDs: d.showdown.CardIDs(),
		Error:   status.Error,
	})
}

func (d *Dealer) holeCardsResponse() *playable.Response {
	return playable.Push(playable.KeyHoleCards, d.holeCards.Status())
}
