package types

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const MaxQuorum = 100

// Network selects the payment rail. Local uses the bundled development token
// ledger and enables the faucet, remote talks to an external rail over HTTP.
type Network string

const (
	NetworkLocal  Network = "local"
	NetworkRemote Network = "remote"
)

func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkLocal, NetworkRemote:
		return Network(s), nil
	case "":
		return NetworkLocal, nil
	}
	return "", fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, s)
}

// InitParams is what an administrator supplies once to initialize the DAO.
type InitParams struct {
	Quorum           uint64        `json:"quorum"`
	VoteDuration     time.Duration `json:"vote_duration"`
	ContributionTime time.Duration `json:"contribution_time"`
	Network          Network       `json:"network"`
}

func (p InitParams) Validate() error {
	if p.Quorum > MaxQuorum {
		return fmt.Errorf("%w: quorum %d must be between 0 and %d", ErrInvalidConfig, p.Quorum, MaxQuorum)
	}
	if p.VoteDuration <= 0 {
		return fmt.Errorf("%w: vote duration must be positive", ErrInvalidConfig)
	}
	if p.ContributionTime < 0 {
		return fmt.Errorf("%w: contribution time cannot be negative", ErrInvalidConfig)
	}
	if _, err := ParseNetwork(string(p.Network)); err != nil {
		return err
	}
	return nil
}

// DaoConfig is written once by initialization and never changed afterwards.
type DaoConfig struct {
	Quorum           uint64         `json:"quorum"`
	VoteDuration     time.Duration  `json:"vote_duration"`
	ContributionEnds time.Time      `json:"contribution_ends"`
	Admin            common.Address `json:"admin"`
	Network          Network        `json:"network"`
	Initialized      bool           `json:"initialized"`
}

type TreasuryState struct {
	AvailableFunds uint64 `json:"available_funds"`
	LockedFunds    uint64 `json:"locked_funds"`
}

func (t TreasuryState) Total() uint64 {
	return t.AvailableFunds + t.LockedFunds
}

type Holding struct {
	Investor common.Address `json:"investor"`
	Shares   uint64         `json:"shares"`
}

type DaoSummary struct {
	ChainID          string         `json:"chain_id"`
	TotalShares      uint64         `json:"total_shares"`
	AvailableFunds   uint64         `json:"available_funds"`
	LockedFunds      uint64         `json:"locked_funds"`
	ContributionEnds time.Time      `json:"contribution_ends"`
	NextProposalID   uint64         `json:"next_proposal_id"`
	Quorum           uint64         `json:"quorum"`
	VoteTime         time.Duration  `json:"vote_time"`
	Admin            common.Address `json:"admin"`
	Network          Network        `json:"network"`
	Initialized      bool           `json:"initialized"`
	StateHash        common.Hash    `json:"state_hash"`
	Version          int64          `json:"version"`
}
