package holecards

import (
	"context"
	"math/big"

	"fhepoker-client/pkg/deck"
	"fhepoker-client/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Hand is a player's two revealed cards
// A card is nil until it has been decrypted
type Hand struct {
	Address common.Address `json:"address"`
	Cards   [2]*deck.Card  `json:"cards"`
}

// Showdown decrypts every player's cards once the game reaches the showdown
type Showdown struct {
	*Flow
	cards *ledger.ShowdownCards
}

// NewShowdown returns a showdown decryption flow
func NewShowdown(flow *Flow) *Showdown {
	return &Showdown{Flow: flow}
}

// SetCards replaces the revealed handles
// Undealt handles are not sent for decryption
func (s *Showdown) SetCards(cards *ledger.ShowdownCards) {
	s.cards = cards
	if cards == nil {
		s.SetHandles()
		return
	}

	s.SetHandles(showdownHandles(cards)...)
}

// Load fetches the showdown cards for a game
func (s *Showdown) Load(reader ledger.Reader, gameID *big.Int) {
	s.fetchGen++
	gen := s.fetchGen

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		cards, err := reader.GetShowdownCards(ctx, gameID)
		s.exec.Exec(func() {
			if gen != s.fetchGen {
				return
			}

			if err != nil {
				s.log.WithError(err).Warn("could not fetch showdown cards")
				return
			}

			s.SetCards(cards)
		})
	}()
}

// Hands returns each revealed player's cards
func (s *Showdown) Hands() []*Hand {
	if s.cards == nil {
		return nil
	}

	hands := make([]*Hand, len(s.cards.Players))
	for i, addr := range s.cards.Players {
		hand := &Hand{Address: addr}
		for j, h := range s.pair(i) {
			if h.IsDealt() {
				hand.Cards[j] = s.Card(h)
			}
		}

		hands[i] = hand
	}

	return hands
}

// CardIDs maps each player to their two card ids
// Players whose cards are not decrypted yet are left out
func (s *Showdown) CardIDs() map[common.Address][2]int {
	ids := make(map[common.Address][2]int)
	for _, hand := range s.Hands() {
		if hand.Cards[0] == nil || hand.Cards[1] == nil {
			continue
		}

		ids[hand.Address] = [2]int{hand.Cards[0].ID, hand.Cards[1].ID}
	}

	return ids
}

func (s *Showdown) pair(i int) [2]ledger.Handle {
	var p [2]ledger.Handle
	if i < len(s.cards.Card1) {
		p[0] = s.cards.Card1[i]
	}

	if i < len(s.cards.Card2) {
		p[1] = s.cards.Card2[i]
	}

	return p
}

func showdownHandles(cards *ledger.ShowdownCards) []ledger.Handle {
	var handles []ledger.Handle
	for i := range cards.Players {
		if i < len(cards.Card1) && cards.Card1[i].IsDealt() {
			handles = append(handles, cards.Card1[i])
		}

		if i < len(cards.Card2) && cards.Card2[i].IsDealt() {
			handles = append(handles, cards.Card2[i])
		}
	}

	return handles
}
