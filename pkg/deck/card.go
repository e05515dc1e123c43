package deck

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a card identifier is outside of 0-51
var ErrInvalidID = errors.New("card id must be between 0 and 51")

// Suit represents a card suit
type Suit string

// suit constants
const (
	Clubs    Suit = "clubs"
	Diamonds Suit = "diamonds"
	Hearts   Suit = "hearts"
	Spades   Suit = "spades"
)

// suitOrder is the order the contract packs suits into a card id
var suitOrder = [4]Suit{Clubs, Diamonds, Hearts, Spades}

// Size is the number of cards in the deck
const Size = 52

// face cards
const (
	Jack    = 11
	Queen   = 12
	King    = 13
	Ace     = 14
	HighAce = Ace
	LowAce  = 1
)

// Card is an individual playing card
// The contract encodes a card as id = suitIndex*13 + rankIndex, where rankIndex 0 is the Ace
type Card struct {
	ID   int  `json:"id"`
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

// FromID decodes a card identifier
func FromID(id int) (*Card, error) {
	if id < 0 || id >= Size {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	rank := id%13 + 1
	if rank == LowAce {
		rank = Ace
	}

	return &Card{
		ID:   id,
		Rank: rank,
		Suit: suitOrder[id/13],
	}, nil
}

// FromIDs decodes a slice of card identifiers
func FromIDs(ids []int) ([]*Card, error) {
	cards := make([]*Card, len(ids))
	for i, id := range ids {
		card, err := FromID(id)
		if err != nil {
			return nil, err
		}

		cards[i] = card
	}

	return cards, nil
}

// CardID returns the identifier for the rank and suit
func CardID(rank int, suit Suit) (int, error) {
	if rank == Ace {
		rank = LowAce
	}

	if rank < LowAce || rank > King {
		return 0, fmt.Errorf("invalid rank: %d", rank)
	}

	for i, s := range suitOrder {
		if s == suit {
			return i*13 + rank - 1, nil
		}
	}

	return 0, fmt.Errorf("invalid suit: %s", suit)
}

func (c *Card) String() string {
	var rank string
	switch c.Rank {
	case Jack:
		rank = "J"
	case Queen:
		rank = "Q"
	case King:
		rank = "K"
	case Ace:
		rank = "A"
	default:
		rank = strconv.Itoa(c.Rank)
	}

	var suit string
	switch c.Suit {
	case Clubs:
		suit = "♣"
	case Diamonds:
		suit = "♢"
	case Hearts:
		suit = "♡"
	case Spades:
		suit = "♠"
	default:
		panic("unknown suit")
	}

	return fmt.Sprintf("%s%s", rank, suit)
}

// IsRed returns true for hearts and diamonds
func (c *Card) IsRed() bool {
	return c.Suit == Hearts || c.Suit == Diamonds
}

// Equal returns true if the cards are equal (matches suit and rank)
func (c *Card) Equal(card *Card) bool {
	return c.Suit == card.Suit && c.Rank == card.Rank
}

// AceLowRank return the rank where Ace is considered low instead of high
func (c *Card) AceLowRank() int {
	if c.Rank == Ace {
		return 1
	}

	return c.Rank
}

var cardRx = regexp.MustCompile(`(?i)^([0-9]|1[0-4])([cdhs])\z`)

// CardFromString returns a Card from the string.
// The string must be in the format of <rank><suit> where rank >= 2 and <= 14 and suit in [cdhs]
func CardFromString(s string) *Card {
	if s == "" {
		return nil
	}

	match := cardRx.FindStringSubmatch(s)
	if match == nil {
		panic(fmt.Sprintf("could not parse card: %s", s))
	}

	rank, err := strconv.Atoi(match[1])
	if err != nil {
		panic(fmt.Sprintf("could not parse card `%s`: %v", s, err))
	}

	var suit Suit
	switch strings.ToLower(match[2]) {
	case "c":
		suit = Clubs
	case "d":
		suit = Diamonds
	case "h":
		suit = Hearts
	case "s":
		suit = Spades
	default:
		// should never be hit due to the regexp
		panic("unknown suit")
	}

	id, err := CardID(rank, suit)
	if err != nil {
		panic(fmt.Sprintf("could not parse card `%s`: %v", s, err))
	}

	return &Card{
		ID:   id,
		Rank: rank,
		Suit: suit,
	}
}

// CardsFromString will returns a slice of cards
func CardsFromString(s string) []*Card {
	if s == "" {
		return []*Card{}
	}

	cardStrings := strings.Split(s, ",")
	cards := make([]*Card, len(cardStrings))
	for i, card := range cardStrings {
		cards[i] = CardFromString(card)
	}

	return cards
}
