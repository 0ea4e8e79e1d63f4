package gateway

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance on payment rail")
	ErrRejected            = errors.New("payment rail rejected request")
	ErrUnavailable         = errors.New("payment rail unavailable")
	ErrOutcomeUnknown      = errors.New("payment rail outcome unknown")
	ErrFaucetWalletFunded  = errors.New("faucet only pays empty wallets")
	ErrFaucetDisabled      = errors.New("faucet is only available on the local network")
)

type DepositRequest struct {
	From           common.Address `json:"from"`
	Amount         uint64         `json:"amount"`
	IdempotencyKey string         `json:"idempotency_key"`
}

type TransferRequest struct {
	To             common.Address `json:"to"`
	Amount         uint64         `json:"amount"`
	IdempotencyKey string         `json:"idempotency_key"`
}

// Receipt acknowledges a completed movement of funds. A request replayed with
// a known idempotency key returns the original receipt with Replayed set.
type Receipt struct {
	ID       string         `json:"id"`
	Account  common.Address `json:"account"`
	Amount   uint64         `json:"amount"`
	Replayed bool           `json:"replayed"`
}

// PaymentGateway moves value between wallets and the DAO treasury account.
type PaymentGateway interface {
	// Deposit pulls Amount from From's wallet into the treasury account.
	Deposit(ctx context.Context, req DepositRequest) (Receipt, error)
	// Transfer pays Amount out of the treasury account to To.
	Transfer(ctx context.Context, req TransferRequest) (Receipt, error)
	BalanceOf(ctx context.Context, addr common.Address) (uint64, error)
}

func NewIdempotencyKey() string {
	return uuid.NewString()
}

// TreasuryAddress is the treasury account a local rail keeps for chainID.
func TreasuryAddress(chainID string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("dao/treasury/" + chainID)))
}
