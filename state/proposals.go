package state

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

// ProposalRegistry owns proposals and their lifecycle. Ids are dense and
// start at zero; proposals are never deleted.
type ProposalRegistry struct {
	s *State
}

func proposalKey(id uint64) string {
	return fmt.Sprintf(KeyProposalBody, id)
}

func (r *ProposalRegistry) NextID() (id uint64, err error) {
	_, err = r.s.getUint(KeyProposalIndex, &id)
	return
}

func (r *ProposalRegistry) Create(proposer common.Address, title string, amount uint64, recipient common.Address, deadline, now time.Time) (id uint64, err error) {
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("%w: title is empty", types.ErrInvalidProposal)
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: amount must be greater than zero", types.ErrInvalidProposal)
	}
	id, err = r.NextID()
	if err != nil {
		return
	}
	if id == math.MaxUint64 {
		return 0, fmt.Errorf("%w: proposal ids exhausted", types.ErrInvariantViolation)
	}
	p := &types.Proposal{
		ID:        id,
		Title:     title,
		Amount:    amount,
		Recipient: recipient,
		Proposer:  proposer,
		Created:   now.UTC(),
		Ends:      deadline.UTC(),
	}
	if err = r.put(p); err != nil {
		return
	}
	err = r.s.setUint(KeyProposalIndex, id+1)
	return
}

func (r *ProposalRegistry) Get(id uint64) (p *types.Proposal, err error) {
	val, err := r.s.db.Get([]byte(proposalKey(id)))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, types.ErrProposalNotFound
	}
	p = new(types.Proposal)
	if err = json.Unmarshal(val, p); err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return
}

// List returns every proposal in ascending id order.
func (r *ProposalRegistry) List() (proposals []*types.Proposal, err error) {
	next, err := r.NextID()
	if err != nil {
		return
	}
	proposals = make([]*types.Proposal, 0, next)
	for id := uint64(0); id < next; id++ {
		p, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return
}

// AddVoteWeight adds weight to an open proposal's tally.
func (r *ProposalRegistry) AddVoteWeight(id uint64, weight uint64, now time.Time) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if p.Ended {
		return types.ErrProposalAlreadyEnded
	}
	if now.After(p.Ends) {
		return types.ErrProposalExpired
	}
	if p.Votes > math.MaxUint64-weight {
		return fmt.Errorf("%w: vote tally overflow", types.ErrInvariantViolation)
	}
	p.Votes += weight
	return r.put(p)
}

// Finalize closes the proposal. It is the only transition out of open.
func (r *ProposalRegistry) Finalize(id uint64, executed bool, now time.Time) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}
	if p.Ended {
		return types.ErrProposalAlreadyEnded
	}
	if now.Before(p.Ends) {
		return types.ErrProposalNotYetEnded
	}
	p.Ended = true
	p.Executed = executed
	return r.put(p)
}

func (r *ProposalRegistry) put(p *types.Proposal) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = r.s.db.Set([]byte(proposalKey(p.ID)), val)
	return err
}
