package txtracker

import (
	"context"
	"math/big"
	"strings"

	"fhepoker-client/pkg/action"
	"fhepoker-client/pkg/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// MessageCancelled is shown when the signer refused the transaction
const MessageCancelled = "Transaction cancelled."

const maxMessageLength = 100

// UserError is an error that is safe to return in a response
type UserError string

func (u UserError) Error() string {
	return string(u)
}

var rejectionPhrases = []string{
	"user rejected",
	"user denied",
	"request denied",
}

// SubmissionMessage reduces a submission error to something short enough to show
func SubmissionMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, phrase := range rejectionPhrases {
		if strings.Contains(lower, phrase) {
			return MessageCancelled
		}
	}

	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}

	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "Unknown error"
	}

	if r := []rune(msg); len(r) > maxMessageLength {
		msg = string(r[:maxMessageLength])
	}

	return msg
}

// Submitter sends transactions and hands them to the tracker
// A failed submission returns a UserError carrying the short message
// Its methods block on the network and must not be called from the loop
type Submitter struct {
	writer  ledger.Writer
	tracker *Tracker
}

// NewSubmitter returns a submitter
func NewSubmitter(writer ledger.Writer, tracker *Tracker) *Submitter {
	return &Submitter{
		writer:  writer,
		tracker: tracker,
	}
}

func (s *Submitter) submit(kind Kind, gameID *big.Int, send func() (common.Hash, error)) (common.Hash, error) {
	hash, err := send()
	if err != nil {
		message := SubmissionMessage(err)
		s.tracker.log.WithError(err).WithField("action", kind).Error("could not submit transaction")

		s.tracker.exec.Exec(func() {
			s.tracker.ClearPendingTransaction()
			s.tracker.notify(Notification{
				Kind:    NotifySubmitFailed,
				Action:  kind,
				GameID:  gameID,
				Message: message,
			})
		})

		return common.Hash{}, UserError(message)
	}

	s.tracker.exec.Exec(func() {
		s.tracker.SetPendingTransaction(hash, kind, gameID)
	})

	return hash, nil
}

// CreateGame submits createGame()
func (s *Submitter) CreateGame(ctx context.Context) (common.Hash, error) {
	return s.submit(KindCreate, nil, func() (common.Hash, error) {
		return s.writer.CreateGame(ctx)
	})
}

// JoinGame submits joinGame()
func (s *Submitter) JoinGame(ctx context.Context, gameID *big.Int) (common.Hash, error) {
	return s.submit(KindJoin, gameID, func() (common.Hash, error) {
		return s.writer.JoinGame(ctx, gameID)
	})
}

// StartGame submits startGame()
func (s *Submitter) StartGame(ctx context.Context, gameID *big.Int) (common.Hash, error) {
	return s.submit(KindStart, gameID, func() (common.Hash, error) {
		return s.writer.StartGame(ctx, gameID)
	})
}

// PlayerAction submits playerAction()
func (s *Submitter) PlayerAction(ctx context.Context, gameID *big.Int, act action.Action, raiseAmount *big.Int) (common.Hash, error) {
	return s.submit(KindPlayerAction, gameID, func() (common.Hash, error) {
		return s.writer.PlayerAction(ctx, gameID, act, raiseAmount)
	})
}
