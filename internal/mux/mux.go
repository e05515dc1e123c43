package mux

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"fhepoker-client/internal/jwt"
	"fhepoker-client/pkg/lobby"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/room"
	"fhepoker-client/pkg/txtracker"
	"github.com/ethereum/go-ethereum/common"
	gmux "github.com/gorilla/mux"
)

type ctxKey int

const (
	ctxAddressKey ctxKey = iota
	ctxGameIDKey
)

// AddressHeader carries the authenticated wallet address on responses
const AddressHeader = "FHEPoker-Address"

// Options are the components the HTTP API serves
// Submitter is nil when the client has no private key
type Options struct {
	Version   string
	Loop      *loop.Loop
	PitBoss   *room.PitBoss
	Lobby     *lobby.Lobby
	Tracker   *txtracker.Tracker
	Submitter *txtracker.Submitter
}

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	version   string
	loop      *loop.Loop
	pitBoss   *room.PitBoss
	lobby     *lobby.Lobby
	tracker   *txtracker.Tracker
	submitter *txtracker.Submitter

	// set while a submission is being signed, only touched on the loop
	submitting bool

	// store for testing purposes
	authRouter *gmux.Router
}

// NewMux returns a new HTTP mux
func NewMux(opts Options) *Mux {
	this := &Mux{
		Router:    gmux.NewRouter(),
		version:   opts.Version,
		loop:      opts.Loop,
		pitBoss:   opts.PitBoss,
		lobby:     opts.Lobby,
		tracker:   opts.Tracker,
		submitter: opts.Submitter,
	}

	this.authRouter = this.Router.NewRoute().Subrouter()
	this.authRouter.Use(this.authMiddleware)

	// unauthorized endpoints
	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
		r.Methods(http.MethodGet).Path("/games").Handler(this.getGames())

		gr := r.PathPrefix("/game/{id:[0-9]+}").Subrouter()
		gr.Use(this.gameMiddleware)
		gr.Methods(http.MethodGet).Path("").Handler(this.getGameID())
		gr.Methods(http.MethodGet).Path("/availability").Handler(this.getGameIDAvailability())
		gr.Methods(http.MethodPost).Path("/refresh").Handler(this.postGameIDRefresh())
		gr.Methods(http.MethodGet).Path("/ws").Handler(this.getGameIDWS())
	}

	// requires bearer authorization
	{
		r := this.authRouter
		r.Methods(http.MethodPost).Path("/game").Handler(this.postGame())
		r.Methods(http.MethodGet).Path("/transaction").Handler(this.getTransaction())
		r.Methods(http.MethodDelete).Path("/transaction").Handler(this.deleteTransaction())

		gr := r.PathPrefix("/game/{id:[0-9]+}").Subrouter()
		gr.Use(this.gameMiddleware)
		gr.Methods(http.MethodPost).Path("/join").Handler(this.postGameIDJoin())
		gr.Methods(http.MethodPost).Path("/start").Handler(this.postGameIDStart())
		gr.Methods(http.MethodPost).Path("/action").Handler(this.postGameIDAction())
	}

	return this
}

func bearerToken(r *http.Request) string {
	if token := r.FormValue("access_token"); token != "" {
		return token
	}

	authHeader := strings.Split(r.Header.Get("Authorization"), " ")
	if len(authHeader) != 2 || strings.ToLower(authHeader[0]) != "bearer" {
		return ""
	}

	return authHeader[1]
}

// authMiddleware only lets through tokens issued for the wallet this client signs with
func (m *Mux) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		addr, err := jwt.ValidAddress(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, nil)
			return
		}

		if m.tracker == nil || addr != m.tracker.Self() {
			writeJSONError(w, http.StatusForbidden, errors.New("token was not issued for this wallet"))
			return
		}

		newCtx := context.WithValue(r.Context(), ctxAddressKey, addr)
		w.Header().Set(AddressHeader, addr.Hex())
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

func (m *Mux) gameMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gameID, ok := new(big.Int).SetString(gmux.Vars(r)["id"], 10)
		if !ok {
			writeJSONError(w, http.StatusNotFound, nil)
			return
		}

		newCtx := context.WithValue(r.Context(), ctxGameIDKey, gameID)
		next.ServeHTTP(w, r.WithContext(newCtx))
	})
}

func gameIDFromContext(r *http.Request) *big.Int {
	return r.Context().Value(ctxGameIDKey).(*big.Int)
}

// optionalAddress returns the wallet of a valid token, or the zero address
func optionalAddress(r *http.Request) common.Address {
	token := bearerToken(r)
	if token == "" {
		return common.Address{}
	}

	addr, err := jwt.ValidAddress(token)
	if err != nil {
		return common.Address{}
	}

	return addr
}
