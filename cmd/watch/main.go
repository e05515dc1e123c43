package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fhepoker-client/internal/config"
	"fhepoker-client/internal/util"
	"fhepoker-client/pkg/deck"
	"fhepoker-client/pkg/history"
	"fhepoker-client/pkg/ledger/ethledger"
	"fhepoker-client/pkg/loop"
	"fhepoker-client/pkg/poller"
	"fhepoker-client/pkg/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
)

var gameFlag = flag.Int64("game", 0, "the game to watch")
var historyFlag = flag.Int("history", 10, "number of actions to show")

func main() {
	flag.Parse()

	// logs would tear the live area
	logrus.SetLevel(logrus.ErrorLevel)

	cfg := config.Instance()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	led, client, err := ethledger.Dial(ctx, cfg.RPCURL, ethledger.Options{
		ContractAddress: common.HexToAddress(cfg.ContractAddress),
		ChainID:         big.NewInt(cfg.ChainID),
	})
	if err != nil {
		pterm.Error.Printfln("could not connect to %s: %s", cfg.RPCURL, err)
		os.Exit(1)
	}
	defer client.Close()

	area, err := pterm.DefaultArea.Start()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	defer func() { _ = area.Stop() }()

	l := loop.New()
	l.Start()
	defer l.Stop()

	p := poller.New(big.NewInt(*gameFlag), led, store.NewCache(store.NewMemory(), logrus.StandardLogger()), l, poller.Options{
		Interval: cfg.PollInterval,
	})

	l.Do(func() {
		p.OnUpdate(func(s poller.State) {
			area.Update(render(s, *historyFlag))
		})
		p.Start()
	})

	<-ctx.Done()
	l.Do(p.Stop)
}

func render(s poller.State, historyLimit int) string {
	var b strings.Builder
	header := pterm.DefaultHeader.WithFullWidth().Sprintf("Game #%s", s.GameID)
	b.WriteString(header)
	b.WriteString("\n")

	if s.Game == nil {
		if s.IsLoading {
			b.WriteString(pterm.Info.Sprint("loading..."))
		} else {
			b.WriteString(pterm.Warning.Sprint("no data yet"))
		}

		return b.String()
	}

	g := s.Game
	b.WriteString(fmt.Sprintf("%s  pot %s  bet %s\n", pterm.Bold.Sprint(g.Phase.Label()), g.Pot, g.CurrentBet))

	if len(g.CommunityCards) > 0 {
		cards, err := deck.FromIDs(g.CommunityCards)
		if err == nil {
			b.WriteString(fmt.Sprintf("Board: %s\n", renderCards(cards)))
		}
	}

	data := pterm.TableData{{"", "Player", "Chips", "Bet", "Status"}}
	for i, player := range s.Players {
		marker := ""
		if g.IsPlayerTurn(i) {
			marker = pterm.Green("▶")
		}

		status := "active"
		if player.Folded {
			status = pterm.Gray("folded")
		} else if !player.Active {
			status = pterm.Gray("out")
		}

		data = append(data, []string{marker, util.ShortAddress(player.Address), player.Chips.String(), player.CurrentBet.String(), status})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err == nil {
		b.WriteString(table)
		b.WriteString("\n")
	}

	if g.Winner != (common.Address{}) {
		b.WriteString(pterm.Success.Sprintf("%s won %s", util.ShortAddress(g.Winner), g.Winnings))
	}

	for _, event := range history.Tail(s.Actions, historyLimit) {
		b.WriteString(fmt.Sprintf("%s %s\n", pterm.Gray(event.Timestamp.Format("15:04:05")), event.String()))
	}

	return b.String()
}

func renderCards(cards []*deck.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		if c.IsRed() {
			parts[i] = pterm.Red(c.String())
		} else {
			parts[i] = c.String()
		}
	}

	return strings.Join(parts, " ")
}
