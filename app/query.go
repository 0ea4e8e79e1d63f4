package app

import (
	"context"
	"errors"

	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) GetShares(ctx context.Context, addr common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.db.State().Shares().BalanceOf(addr)
}

func (e *Engine) GetProposal(ctx context.Context, id uint64) (*types.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.db.State().Proposals().Get(id)
}

func (e *Engine) ListProposals(ctx context.Context) ([]*types.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.db.State().Proposals().List()
}

// Voters lists the investors who voted on proposal id.
func (e *Engine) Voters(ctx context.Context, id uint64) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	st := e.db.State()
	if _, err := st.Proposals().Get(id); err != nil {
		return nil, err
	}
	return st.Votes().Voters(id)
}

func (e *Engine) Holders(ctx context.Context) ([]types.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.db.State().Shares().Holders()
}

func (e *Engine) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.db.State().Nonce(addr)
}

// GetDaoSummary reports the DAO's counters. It answers before initialization
// with Initialized unset.
func (e *Engine) GetDaoSummary(ctx context.Context) (summary *types.DaoSummary, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()
	st := e.db.State()
	header := e.db.Header()
	summary = &types.DaoSummary{
		ChainID:   e.chainID,
		StateHash: header.Hash,
		Version:   header.Version,
	}
	if summary.TotalShares, err = st.Shares().TotalShares(); err != nil {
		return nil, err
	}
	tr, err := st.Treasury().State()
	if err != nil {
		return nil, err
	}
	summary.AvailableFunds = tr.AvailableFunds
	summary.LockedFunds = tr.LockedFunds
	if summary.NextProposalID, err = st.Proposals().NextID(); err != nil {
		return nil, err
	}
	cfg, err := e.config(st)
	if errors.Is(err, types.ErrNotInitialized) {
		return summary, nil
	}
	if err != nil {
		return nil, err
	}
	summary.ContributionEnds = cfg.ContributionEnds
	summary.Quorum = cfg.Quorum
	summary.VoteTime = cfg.VoteDuration
	summary.Admin = cfg.Admin
	summary.Network = cfg.Network
	summary.Initialized = true
	return summary, nil
}
