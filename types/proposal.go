package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Proposal struct {
	ID        uint64         `json:"id"`
	Title     string         `json:"title"`
	Amount    uint64         `json:"amount"`
	Recipient common.Address `json:"recipient"`
	Proposer  common.Address `json:"proposer"`
	Votes     uint64         `json:"votes"`
	Created   time.Time      `json:"created"`
	Ends      time.Time      `json:"ends"`
	Executed  bool           `json:"executed"`
	Ended     bool           `json:"ended"`
}

// Open reports whether the proposal still accepts votes at now.
func (p *Proposal) Open(now time.Time) bool {
	return !p.Ended && !now.After(p.Ends)
}

func (p *Proposal) Status() ProposalStatus {
	switch {
	case !p.Ended:
		return ProposalStatusOpen
	case p.Executed:
		return ProposalStatusPassed
	default:
		return ProposalStatusRejected
	}
}

func (p *Proposal) Clone() *Proposal {
	n := *p
	return &n
}

type ProposalStatus uint64

const (
	ProposalStatusOpen     ProposalStatus = 1
	ProposalStatusPassed   ProposalStatus = 2
	ProposalStatusRejected ProposalStatus = 3
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusOpen:
		return "open"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusRejected:
		return "rejected"
	}
	return "unknown"
}
