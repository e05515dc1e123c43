package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"fhepoker-client/internal/config"
	"fhepoker-client/internal/jwt"
	"fhepoker-client/pkg/ledger/ethledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

var command = flag.String("c", "token", "specifies the command (token, address)")
var subject = flag.String("address", "", "issue the token for this wallet instead of a private key")

func main() {
	flag.Parse()

	switch *command {
	case "token":
		if err := jwt.LoadKeys(); err != nil {
			logrus.WithError(err).Fatal("could not load jwt keys")
		}

		var addr common.Address
		switch {
		case *subject == "":
			addr = getAddress()
		case common.IsHexAddress(*subject):
			addr = common.HexToAddress(*subject)
		default:
			logrus.Fatalf("not a wallet address: %s", *subject)
		}

		if addr == (common.Address{}) {
			os.Exit(1)
		}

		token, err := jwt.Sign(addr)
		if err != nil {
			logrus.WithError(err).Fatal("could not sign token")
		}

		fmt.Println(token)

	case "address":
		key := getPrivateKey()
		if key == "" {
			os.Exit(1)
		}

		pk, err := ethledger.ParsePrivateKey(key)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse private key")
		}

		fmt.Println(ethledger.NewKeySigner(pk).Address().Hex())

	default:
		logrus.Fatalf("unknown command: %s", *command)
	}
}

// getAddress derives the wallet from the configured private key, or prompts for one
func getAddress() common.Address {
	key := config.Instance().PrivateKey
	if key == "" {
		key = getPrivateKey()
	}

	if key == "" {
		return common.Address{}
	}

	pk, err := ethledger.ParsePrivateKey(key)
	if err != nil {
		logrus.WithError(err).Fatal("could not parse private key")
	}

	addr := ethledger.NewKeySigner(pk).Address()
	_, _ = fmt.Fprintf(os.Stderr, "Wallet: %s\n", addr.Hex())
	return addr
}

func getPrivateKey() string {
	fmt.Print("Private key: ")
	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println("")
	if err != nil {
		logrus.WithError(err).Error("could not read private key")
		return ""
	}

	return strings.TrimSpace(string(keyBytes))
}
