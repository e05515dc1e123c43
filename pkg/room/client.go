package room

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is a client connected to the server via websockets
type Client struct {
	id uuid.UUID

	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// send is a channel for sending messages to the client
	send chan interface{}

	// Close is a channel for closing the client
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	// dealer is only read and written on the loop
	dealer *Dealer

	gameID  *big.Int
	address common.Address
}

// NewClient returns a new client watching a game
// address is the zero address for clients that did not authenticate
func NewClient(conn *websocket.Conn, gameID *big.Int, address common.Address) *Client {
	return &Client{
		id:      uuid.New(),
		send:    make(chan interface{}, 256),
		Close:   make(chan string),
		Conn:    conn,
		gameID:  gameID,
		address: address,
	}
}

// Send send a message to the web client
// false is returned if the client is not keeping up
func (c *Client) Send(msg interface{}) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// SendChan returns a read-only channel
func (c *Client) SendChan() <-chan interface{} {
	return c.send
}

// ID uniquely identifies the connection
func (c *Client) ID() uuid.UUID {
	return c.id
}

// GameID returns the game the client is watching
func (c *Client) GameID() *big.Int {
	return c.gameID
}

// Address returns the authenticated wallet address
func (c *Client) Address() common.Address {
	return c.address
}

// String returns a traceable identifier for the client and game
func (c *Client) String() string {
	return fmt.Sprintf("%s:%s:%s", c.id, c.address.Hex(), c.gameID)
}
