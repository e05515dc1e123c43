package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"flag"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fhepoker-client/internal/config"
	"fhepoker-client/internal/jwt"
	"fhepoker-client/internal/mux"
	"fhepoker-client/pkg/db"
	"fhepoker-client/pkg/holecards"
	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/ledger/ethledger"
	"fhepoker-client/pkg/lobby"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/poller"
	"fhepoker-client/pkg/reconciler"
	"fhepoker-client/pkg/room"
	"fhepoker-client/pkg/store"
	"fhepoker-client/pkg/store/boltstore"
	"fhepoker-client/pkg/store/pgstore"
	"fhepoker-client/pkg/txtracker"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/handlers"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

const readTimeout = time.Second * 5
const writeTimeout = time.Second * 10
const dialTimeout = time.Second * 15

// Version is the server version
var Version = "v0.0.0-dev"

var addr = flag.String("addr", "", "the listen address, overrides the configuration")

func main() {
	flag.Parse()
	setupLogger()

	cfg := config.Instance()
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	// fail fast
	if err := jwt.LoadKeys(); err != nil {
		logrus.WithError(err).Fatal("could not load jwt keys")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backing, err := openStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("could not open storage")
	}
	defer backing.Close()

	contract := common.HexToAddress(cfg.ContractAddress)
	chainID := big.NewInt(cfg.ChainID)

	key, signer := loadWallet(cfg)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	led, client, err := ethledger.Dial(dialCtx, cfg.RPCURL, ethledger.Options{
		ContractAddress:     contract,
		ChainID:             chainID,
		PrivateKey:          key,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
	})
	cancel()
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to node")
	}
	defer client.Close()

	l := loop.New()
	l.Start()
	defer l.Stop()

	self := common.HexToAddress(cfg.PlayerAddress)
	if signer != nil {
		self = signer.Address()
	}

	tracker := txtracker.New(l, led, txtracker.Options{
		ConfirmFallback: cfg.ConfirmFallback,
		StallTimeout:    cfg.StallTimeout,
		Self:            self,
	})

	var submitter *txtracker.Submitter
	if key != nil {
		submitter = txtracker.NewSubmitter(led, tracker)
	}

	rec := reconciler.New(dialLogWatcher(ctx, cfg.WSURL), l, reconciler.Options{})
	lob := lobby.New(led, l, lobby.Options{})

	pbOpts := room.Options{
		Reader:     led,
		Cache:      store.NewCache(backing, logrus.StandardLogger()),
		Reconciler: rec,
		Tracker:    tracker,
		Contract:   contract,
		Poll:       poller.Options{Interval: cfg.PollInterval},
	}

	if signer != nil {
		pbOpts.Signer = signer
	}

	pitBoss := room.NewPitBoss(l, pbOpts)
	pitBoss.StartShift()
	defer pitBoss.EndShift()

	l.Do(func() {
		rec.Register(lob.Handlers())
		rec.SetTarget(chainID, contract)
		lob.Refresh()
	})

	go connectRelayer(ctx, cfg.Decrypt.URL, pitBoss)

	c := cors.New(cors.Options{
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		ExposedHeaders: []string{mux.AddressHeader},
	})

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: loggingHandler(c.Handler(mux.NewMux(mux.Options{
			Version:   Version,
			Loop:      l,
			PitBoss:   pitBoss,
			Lobby:     lob,
			Tracker:   tracker,
			Submitter: submitter,
		}))),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.WithFields(logrus.Fields{
		"addr":     srv.Addr,
		"contract": contract.Hex(),
		"wallet":   self.Hex(),
		"readOnly": submitter == nil,
	}).Info("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("server stopped")
	}

	l.Do(rec.Close)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageBolt:
		return boltstore.Open(cfg.Storage.Path)
	case config.StoragePostgres:
		dbh, err := db.WaitFor(ctx, cfg.PGDSN, time.Second*10)
		if err != nil {
			return nil, err
		}

		if err := db.Migrate(dbh, cfg.MigrationsPath); err != nil {
			_ = dbh.Close()
			return nil, err
		}

		return pgstore.New(dbh), nil
	default:
		return store.NewMemory(), nil
	}
}

// loadWallet returns nil values when no private key is configured
func loadWallet(cfg config.Config) (*ecdsa.PrivateKey, *ethledger.KeySigner) {
	if cfg.PrivateKey == "" {
		logrus.Warn("no private key configured, running read-only")
		return nil, nil
	}

	key, err := ethledger.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		logrus.WithError(err).Fatal("could not parse private key")
	}

	return key, ethledger.NewKeySigner(key)
}

// dialLogWatcher returns a websocket client for event subscriptions
// without one the reconciler keeps retrying and the poller carries the load
func dialLogWatcher(ctx context.Context, wsURL string) ledger.LogWatcher {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, wsURL)
	if err != nil {
		logrus.WithError(err).WithField("url", wsURL).Warn("could not dial websocket endpoint")
		return unavailableWatcher{err: err}
	}

	return client
}

type unavailableWatcher struct {
	err error
}

func (u unavailableWatcher) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, u.err
}

func connectRelayer(ctx context.Context, url string, pitBoss *room.PitBoss) {
	if url == "" {
		logrus.Warn("no decryption service configured, hole cards will stay hidden")
		return
	}

	relayer, err := holecards.ConnectRelayer(ctx, url, holecards.DefaultConnectAttempts, holecards.DefaultConnectWait, clock.New(), logrus.StandardLogger())
	if err != nil {
		logrus.WithError(err).Error("could not connect to decryption service")
		return
	}

	pitBoss.SetInstance(relayer)
}

func loggingHandler(next http.Handler) http.Handler {
	if config.Instance().Log.DisableAccessLogs {
		return next
	}

	return handlers.CombinedLoggingHandler(os.Stdout, next)
}

func setupLogger() {
	if lvl := config.Instance().Log.Level; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
