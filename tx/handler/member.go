package handler

import (
	"context"
	"time"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type InitTxHandler struct {
	logger cmtlog.Logger
}

func NewInitTxHandler(logger cmtlog.Logger) *InitTxHandler {
	return &InitTxHandler{logger: logger.With("module", "initTx")}
}

func (h *InitTxHandler) params(btx *tx.DAOTx) (p types.InitParams, err error) {
	itx, err := payload[tx.InitTx](btx)
	if err != nil {
		return
	}
	network, err := types.ParseNetwork(itx.Network)
	if err != nil {
		return
	}
	p = types.InitParams{
		Quorum:           itx.Quorum,
		VoteDuration:     time.Duration(itx.VoteDuration) * time.Second,
		ContributionTime: time.Duration(itx.ContributionTime) * time.Second,
		Network:          network,
	}
	return p, p.Validate()
}

func (h *InitTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	_, err := h.params(btx)
	return err
}

func (h *InitTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	p, err := h.params(btx)
	if err != nil {
		return nil, err
	}
	if err = g.Initialize(ctx, btx.Caller, p); err != nil {
		return nil, err
	}
	return result(nil), nil
}

type JoinTxHandler struct {
	logger cmtlog.Logger
}

func NewJoinTxHandler(logger cmtlog.Logger) *JoinTxHandler {
	return &JoinTxHandler{logger: logger.With("module", "joinTx")}
}

func (h *JoinTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	jtx, err := payload[tx.JoinTx](btx)
	if err != nil {
		return err
	}
	if jtx.Amount == 0 {
		return types.ErrInvalidAmount
	}
	return nil
}

func (h *JoinTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	jtx, err := payload[tx.JoinTx](btx)
	if err != nil {
		return nil, err
	}
	if err = g.Join(ctx, btx.Caller, jtx.Amount); err != nil {
		return nil, err
	}
	h.logger.Debug("join", "investor", btx.Caller, "amount", jtx.Amount)
	return result(nil), nil
}

type RedeemTxHandler struct {
	logger cmtlog.Logger
}

func NewRedeemTxHandler(logger cmtlog.Logger) *RedeemTxHandler {
	return &RedeemTxHandler{logger: logger.With("module", "redeemTx")}
}

func (h *RedeemTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	rtx, err := payload[tx.RedeemTx](btx)
	if err != nil {
		return err
	}
	if rtx.Amount == 0 {
		return types.ErrInvalidAmount
	}
	return nil
}

func (h *RedeemTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	rtx, err := payload[tx.RedeemTx](btx)
	if err != nil {
		return nil, err
	}
	if err = g.Redeem(ctx, btx.Caller, rtx.Amount, rtx.Destination); err != nil {
		return nil, err
	}
	return result(nil), nil
}

type TransferSharesTxHandler struct {
	logger cmtlog.Logger
}

func NewTransferSharesTxHandler(logger cmtlog.Logger) *TransferSharesTxHandler {
	return &TransferSharesTxHandler{logger: logger.With("module", "transferSharesTx")}
}

func (h *TransferSharesTxHandler) Check(ctx context.Context, btx *tx.DAOTx) error {
	ttx, err := payload[tx.TransferSharesTx](btx)
	if err != nil {
		return err
	}
	if ttx.Amount == 0 {
		return types.ErrInvalidAmount
	}
	return nil
}

func (h *TransferSharesTxHandler) Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error) {
	ttx, err := payload[tx.TransferSharesTx](btx)
	if err != nil {
		return nil, err
	}
	if err = g.TransferShares(ctx, btx.Caller, ttx.Amount, ttx.To); err != nil {
		return nil, err
	}
	return result(nil), nil
}
