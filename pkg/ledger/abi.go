package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TexasHoldemABI is the ABI of the TexasHoldem contract
const TexasHoldemABI = `[
	{"inputs":[],"name":"AlreadyFolded","type":"error"},
	{"inputs":[],"name":"GameAlreadyStarted","type":"error"},
	{"inputs":[],"name":"GameFull","type":"error"},
	{"inputs":[],"name":"GameNotFound","type":"error"},
	{"inputs":[],"name":"InsufficientChips","type":"error"},
	{"inputs":[],"name":"InvalidAction","type":"error"},
	{"inputs":[],"name":"NotEnoughPlayers","type":"error"},
	{"inputs":[],"name":"NotYourTurn","type":"error"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":true,"name":"creator","type":"address"}],"name":"GameCreated","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":true,"name":"winner","type":"address"},{"indexed":false,"name":"winnings","type":"uint32"}],"name":"GameEnded","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":false,"name":"playerCount","type":"uint8"}],"name":"GameStarted","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":false,"name":"newPhase","type":"uint8"}],"name":"PhaseChanged","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":true,"name":"player","type":"address"},{"indexed":false,"name":"action","type":"uint8"},{"indexed":false,"name":"amount","type":"uint32"}],"name":"PlayerAction","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"gameId","type":"uint256"},{"indexed":true,"name":"player","type":"address"},{"indexed":false,"name":"playerIndex","type":"uint8"}],"name":"PlayerJoined","type":"event"},
	{"inputs":[],"name":"BIG_BLIND","outputs":[{"name":"","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"INITIAL_CHIPS","outputs":[{"name":"","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"MAX_PLAYERS","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"MIN_PLAYERS","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"SMALL_BLIND","outputs":[{"name":"","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"createGame","outputs":[{"name":"gameId","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"gameCounter","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"","type":"uint256"}],"name":"games","outputs":[{"name":"gameId","type":"uint256"},{"name":"phase","type":"uint8"},{"name":"currentPlayerIndex","type":"uint8"},{"name":"pot","type":"uint32"},{"name":"currentBet","type":"uint32"},{"name":"deckSeed","type":"uint256"},{"name":"deckIndex","type":"uint8"},{"name":"creator","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"getGameInfo","outputs":[{"name":"phase","type":"uint8"},{"name":"playerCount","type":"uint8"},{"name":"pot","type":"uint32"},{"name":"currentPlayerIndex","type":"uint8"},{"name":"currentBet","type":"uint32"},{"name":"creator","type":"address"},{"name":"winner","type":"address"},{"name":"winnings","type":"uint32"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"getCommunityCards","outputs":[{"name":"","type":"uint8[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"getPlayers","outputs":[{"name":"playerAddrs","type":"address[]"},{"name":"playerChips","type":"uint32[]"},{"name":"playerBets","type":"uint32[]"},{"name":"playerFolded","type":"bool[]"},{"name":"playerActive","type":"bool[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"},{"name":"playerAddr","type":"address"}],"name":"getPlayerCards","outputs":[{"name":"card1","type":"bytes32"},{"name":"card2","type":"bytes32"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"getShowdownCards","outputs":[{"name":"playerAddresses","type":"address[]"},{"name":"card1s","type":"bytes32[]"},{"name":"card2s","type":"bytes32[]"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"joinGame","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"},{"name":"action","type":"uint8"},{"name":"raiseAmount","type":"uint32"}],"name":"playerAction","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"protocolId","outputs":[{"name":"","type":"uint256"}],"stateMutability":"pure","type":"function"},
	{"inputs":[{"name":"gameId","type":"uint256"}],"name":"startGame","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// DefaultChainID is the chain the contract was deployed to (Sepolia)
const DefaultChainID = 11155111

// DefaultContractAddress is the deployed TexasHoldem contract
const DefaultContractAddress = "0xB2Aa842c0fA0ec0227f2350d689415f4F33496bF"

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(TexasHoldemABI))
	if err != nil {
		panic(err)
	}
}

// ABI returns the parsed contract ABI
func ABI() abi.ABI {
	return parsedABI
}
