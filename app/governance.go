package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Initialize configures the DAO once. The caller becomes its administrator.
func (e *Engine) Initialize(ctx context.Context, caller common.Address, params types.InitParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()

	st := e.db.State()
	_, err := e.config(st)
	if err == nil {
		return types.ErrAlreadyInitialized
	}
	if !errors.Is(err, types.ErrNotInitialized) {
		return err
	}
	if params.Network == "" {
		params.Network = types.NetworkLocal
	}
	if err = params.Validate(); err != nil {
		return err
	}
	if err = e.matchNetwork(params.Network); err != nil {
		return err
	}
	now := e.now()
	cfg := &types.DaoConfig{
		Quorum:           params.Quorum,
		VoteDuration:     params.VoteDuration,
		ContributionEnds: now.Add(params.ContributionTime).UTC(),
		Admin:            caller,
		Network:          params.Network,
		Initialized:      true,
	}
	err = e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		if err := st.SetConfig(cfg); err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventInit(&types.EventInit{
			Admin:            caller,
			Quorum:           cfg.Quorum,
			VoteDuration:     int64(cfg.VoteDuration.Seconds()),
			ContributionEnds: cfg.ContributionEnds.Unix(),
			Network:          string(cfg.Network),
		})}, nil
	})
	if err == nil {
		e.logger.Info("dao initialized", "admin", caller, "quorum", cfg.Quorum, "voteDuration", cfg.VoteDuration, "contributionEnds", cfg.ContributionEnds)
	}
	return err
}

// Join deposits amount from the caller's wallet and mints as many shares.
func (e *Engine) Join(ctx context.Context, caller common.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mtx.Lock()
	cfg, err := e.config(e.db.State())
	if err == nil && e.now().After(cfg.ContributionEnds) {
		err = types.ErrContributionWindowClosed
	}
	if err == nil && amount == 0 {
		err = types.ErrInvalidAmount
	}
	e.mtx.Unlock()
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	key := gateway.NewIdempotencyKey()
	err = e.settle(ctx, "deposit", func(ctx context.Context) error {
		_, err := e.rail.Deposit(ctx, gateway.DepositRequest{From: caller, Amount: amount, IdempotencyKey: key})
		return err
	})
	if err != nil {
		e.logger.Info("deposit fail", "investor", caller, "amount", amount, "key", key, "err", err)
		return err
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	err = e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		if err := st.Shares().Credit(caller, amount); err != nil {
			return nil, err
		}
		if err := st.Treasury().Credit(amount); err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventJoin(&types.EventJoin{
			Investor: caller,
			Amount:   amount,
			Shares:   amount,
		})}, nil
	})
	if err != nil {
		// the rail already holds the deposit
		e.logger.Error("credit deposit fail", "investor", caller, "amount", amount, "key", key, "err", err)
	}
	return err
}

// Redeem burns amount shares and pays the same amount from the treasury to
// destination.
func (e *Engine) Redeem(ctx context.Context, caller common.Address, amount uint64, destination common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == 0 {
		return types.ErrInvalidAmount
	}
	e.mtx.Lock()
	st := e.db.State()
	err := func() error {
		tr, err := st.Treasury().State()
		if err != nil {
			return err
		}
		if e.holds.freeFunds(tr.AvailableFunds) < amount {
			return types.ErrInsufficientFunds
		}
		bal, err := st.Shares().BalanceOf(caller)
		if err != nil {
			return err
		}
		if e.holds.freeShares(caller, bal) < amount {
			return types.ErrInsufficientShares
		}
		e.holds.reserve(caller, amount, amount)
		return nil
	}()
	e.mtx.Unlock()
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	key := gateway.NewIdempotencyKey()
	err = e.settle(ctx, "transfer", func(ctx context.Context) error {
		_, err := e.rail.Transfer(ctx, gateway.TransferRequest{To: destination, Amount: amount, IdempotencyKey: key})
		return err
	})

	e.mtx.Lock()
	defer e.mtx.Unlock()
	if errors.Is(err, types.ErrTransferPending) {
		// the destination may have been paid: keep the reservation
		e.logger.Error("redeem outcome unknown", "investor", caller, "destination", destination, "amount", amount, "key", key, "err", err)
		return err
	}
	e.holds.release(caller, amount, amount)
	if err != nil {
		e.logger.Info("redeem transfer fail", "investor", caller, "amount", amount, "key", key, "err", err)
		return err
	}
	err = e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		if err := st.Shares().Debit(caller, amount); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvariantViolation, err)
		}
		if err := st.Treasury().Debit(amount); err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvariantViolation, err)
		}
		return []abcitypes.Event{types.EncodeEventRedeem(&types.EventRedeem{
			Investor:    caller,
			Destination: destination,
			Amount:      amount,
			Shares:      amount,
		})}, nil
	})
	if err != nil {
		e.logger.Error("redeem commit fail after payout", "investor", caller, "amount", amount, "key", key, "err", err)
	}
	return err
}

// TransferShares moves shares between investors without touching the treasury.
func (e *Engine) TransferShares(ctx context.Context, caller common.Address, amount uint64, to common.Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount == 0 {
		return types.ErrInvalidAmount
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()

	return e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		bal, err := st.Shares().BalanceOf(caller)
		if err != nil {
			return nil, err
		}
		if e.holds.freeShares(caller, bal) < amount {
			return nil, types.ErrInsufficientShares
		}
		if err = st.Shares().Transfer(caller, to, amount); err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventTransferShares(&types.EventTransferShares{
			From:   caller,
			To:     to,
			Amount: amount,
		})}, nil
	})
}

// CreateProposal locks amount from the treasury and opens a proposal to pay
// it to recipient.
func (e *Engine) CreateProposal(ctx context.Context, caller common.Address, title string, amount uint64, recipient common.Address) (id uint64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()

	st := e.db.State()
	cfg, err := e.config(st)
	if err != nil {
		return
	}
	now := e.now()
	err = e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		tr, err := st.Treasury().State()
		if err != nil {
			return nil, err
		}
		if e.holds.freeFunds(tr.AvailableFunds) < amount {
			return nil, types.ErrInsufficientFunds
		}
		bal, err := st.Shares().BalanceOf(caller)
		if err != nil {
			return nil, err
		}
		if bal == 0 {
			return nil, types.ErrNotAMember
		}
		if err = st.Treasury().Lock(amount); err != nil {
			return nil, err
		}
		ends := now.Add(cfg.VoteDuration)
		id, err = st.Proposals().Create(caller, title, amount, recipient, ends, now)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventProposal(&types.EventProposal{
			ProposalID: id,
			Proposer:   caller,
			Recipient:  recipient,
			Amount:     amount,
			Ends:       ends.Unix(),
			Title:      title,
		})}, nil
	})
	if err == nil {
		e.logger.Info("proposal created", "proposal", id, "proposer", caller, "amount", amount, "recipient", recipient)
	}
	return
}

// Vote adds the caller's share balance, less shares being redeemed, to the
// proposal's tally.
func (e *Engine) Vote(ctx context.Context, caller common.Address, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mtx.Lock()
	defer e.mtx.Unlock()

	now := e.now()
	return e.commit(ctx, func(st *state.State) ([]abcitypes.Event, error) {
		bal, err := st.Shares().BalanceOf(caller)
		if err != nil {
			return nil, err
		}
		if bal == 0 {
			return nil, types.ErrNotAMember
		}
		// shares promised to an outstanding redeem carry no weight
		weight := e.holds.freeShares(caller, bal)
		if weight == 0 {
			return nil, types.ErrInsufficientShares
		}
		voted, err := st.Votes().HasVoted(caller, id)
		if err != nil {
			return nil, err
		}
		if voted {
			return nil, types.ErrDuplicateVote
		}
		if _, err = st.Proposals().Get(id); err != nil {
			return nil, err
		}
		if e.holds.busy[id] {
			return nil, types.ErrProposalBusy
		}
		if err = st.Proposals().AddVoteWeight(id, weight, now); err != nil {
			return nil, err
		}
		if err = st.Votes().MarkVoted(caller, id); err != nil {
			return nil, err
		}
		p, err := st.Proposals().Get(id)
		if err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventVote(&types.EventVote{
			ProposalID: id,
			Voter:      caller,
			Weight:     weight,
			Votes:      p.Votes,
		})}, nil
	})
}

// ExecuteProposal settles a proposal whose voting window has closed. A
// proposal that reached quorum is paid out; otherwise, or when the rail
// refuses the payout, its funds return to the treasury. On a refused payout
// the finalized proposal is returned along with an error wrapping
// ErrExternalTransferFailed.
func (e *Engine) ExecuteProposal(ctx context.Context, caller common.Address, id uint64) (p *types.Proposal, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	e.mtx.Lock()
	st := e.db.State()
	now := e.now()
	var passed bool
	var total uint64
	p, err = func() (*types.Proposal, error) {
		cfg, err := e.config(st)
		if err != nil {
			return nil, err
		}
		if caller != cfg.Admin {
			return nil, types.ErrUnauthorized
		}
		p, err := st.Proposals().Get(id)
		if err != nil {
			return nil, err
		}
		if e.holds.busy[id] {
			return nil, types.ErrProposalBusy
		}
		if now.Before(p.Ends) {
			return nil, types.ErrProposalNotYetEnded
		}
		if p.Ended {
			return nil, types.ErrProposalAlreadyEnded
		}
		if total, err = st.Shares().TotalShares(); err != nil {
			return nil, err
		}
		passed = QuorumReached(p.Votes, total, cfg.Quorum)
		return p, nil
	}()
	if err != nil {
		e.mtx.Unlock()
		return nil, err
	}
	if !passed {
		defer e.mtx.Unlock()
		return e.finalize(ctx, p, total, false, now, nil)
	}
	e.holds.busy[id] = true
	e.mtx.Unlock()

	ctx = context.WithoutCancel(ctx)
	key := gateway.NewIdempotencyKey()
	transferErr := e.settle(ctx, "transfer", func(ctx context.Context) error {
		_, err := e.rail.Transfer(ctx, gateway.TransferRequest{To: p.Recipient, Amount: p.Amount, IdempotencyKey: key})
		return err
	})

	e.mtx.Lock()
	defer e.mtx.Unlock()
	if errors.Is(transferErr, types.ErrTransferPending) {
		// the recipient may have been paid: the proposal stays busy
		e.logger.Error("proposal payout outcome unknown", "proposal", id, "recipient", p.Recipient, "amount", p.Amount, "key", key, "err", transferErr)
		return nil, transferErr
	}
	delete(e.holds.busy, id)
	if transferErr != nil {
		e.logger.Info("proposal payout fail", "proposal", id, "recipient", p.Recipient, "amount", p.Amount, "key", key, "err", transferErr)
	}
	return e.finalize(ctx, p, total, transferErr == nil, now, transferErr)
}

func (e *Engine) finalize(ctx context.Context, p *types.Proposal, total uint64, executed bool, now time.Time, transferErr error) (*types.Proposal, error) {
	ev := &types.EventExecuteProposal{
		ProposalID:  p.ID,
		Recipient:   p.Recipient,
		Amount:      p.Amount,
		Votes:       p.Votes,
		TotalShares: total,
		Executed:    executed,
	}
	if transferErr != nil {
		ev.TransferError = transferErr.Error()
	}
	var final *types.Proposal
	err := e.commit(ctx, func(st *state.State) (events []abcitypes.Event, err error) {
		if executed {
			err = st.Treasury().PayOut(p.Amount)
		} else {
			err = st.Treasury().Release(p.Amount)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", types.ErrInvariantViolation, err)
		}
		if err = st.Proposals().Finalize(p.ID, executed, now); err != nil {
			return nil, err
		}
		if final, err = st.Proposals().Get(p.ID); err != nil {
			return nil, err
		}
		return []abcitypes.Event{types.EncodeEventExecuteProposal(ev)}, nil
	})
	if err != nil {
		e.logger.Error("finalize proposal fail", "proposal", p.ID, "executed", executed, "err", err)
		return nil, err
	}
	e.logger.Info("proposal finalized", "proposal", p.ID, "executed", executed, "votes", p.Votes, "totalShares", total)
	return final, transferErr
}

// QuorumReached reports whether votes*100 >= total*quorum, computed without
// overflow. With no shares left every proposal passes.
func QuorumReached(votes, total, quorum uint64) bool {
	lhs := new(uint256.Int).Mul(uint256.NewInt(votes), uint256.NewInt(100))
	rhs := new(uint256.Int).Mul(uint256.NewInt(total), uint256.NewInt(quorum))
	return !lhs.Lt(rhs)
}
