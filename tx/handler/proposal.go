package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ProposalTxHandler struct {
	logger cmtlog.Logger
}

func NewProposalTxHandler(logger cmtlog.Logger) (h *ProposalTxHandler) {
	logger = logger.With("module", "proposalTx")
	h = &ProposalTxHandler{
		logger: logger,
	}
	return
}

func (h *ProposalTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	ptx, err := payload[tx.ProposalTx](btx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(ptx.Title) == "" {
		return fmt.Errorf("%w: title is empty", types.ErrInvalidProposal)
	}
	if ptx.Amount == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", types.ErrInvalidProposal)
	}
	return nil
}

func (h *ProposalTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	ptx, err := payload[tx.ProposalTx](btx)
	if err != nil {
		return nil, err
	}
	id, err := g.CreateProposal(ctx, btx.Caller, ptx.Title, ptx.Amount, ptx.Recipient)
	if err != nil {
		h.logger.Info("create proposal fail", "proposer", btx.Caller, "err", err)
		return nil, err
	}
	return result(struct {
		Proposal uint64 `json:"proposal"`
	}{id}), nil
}

type VoteTxHandler struct {
	logger cmtlog.Logger
}

func NewVoteTxHandler(logger cmtlog.Logger) *VoteTxHandler {
	return &VoteTxHandler{logger: logger.With("module", "voteTx")}
}

func (h *VoteTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	_, err := payload[tx.VoteTx](btx)
	return err
}

func (h *VoteTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	vtx, err := payload[tx.VoteTx](btx)
	if err != nil {
		return nil, err
	}
	if err = g.Vote(ctx, btx.Caller, vtx.Proposal); err != nil {
		return nil, err
	}
	return result(nil), nil
}

type ExecuteTxHandler struct {
	logger cmtlog.Logger
}

func NewExecuteTxHandler(logger cmtlog.Logger) *ExecuteTxHandler {
	return &ExecuteTxHandler{logger: logger.With("module", "executeTx")}
}

func (h *ExecuteTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	_, err := payload[tx.ExecuteTx](btx)
	return err
}

// Process returns the finalized proposal even when the payout failed, so the
// caller sees the terminal state alongside the error.
func (h *ExecuteTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	etx, err := payload[tx.ExecuteTx](btx)
	if err != nil {
		return nil, err
	}
	p, err := g.ExecuteProposal(ctx, btx.Caller, etx.Proposal)
	if p != nil {
		res = result(p)
	}
	if err != nil && res != nil {
		res.Code = 1
		res.Log = err.Error()
	}
	return
}
