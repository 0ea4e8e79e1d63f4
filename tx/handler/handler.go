package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

// Governance is the set of operations transactions are translated into.
type Governance interface {
	Initialize(ctx context.Context, caller common.Address, params types.InitParams) error
	Join(ctx context.Context, caller common.Address, amount uint64) error
	Redeem(ctx context.Context, caller common.Address, amount uint64, destination common.Address) error
	TransferShares(ctx context.Context, caller common.Address, amount uint64, to common.Address) error
	CreateProposal(ctx context.Context, caller common.Address, title string, amount uint64, recipient common.Address) (uint64, error)
	Vote(ctx context.Context, caller common.Address, id uint64) error
	ExecuteProposal(ctx context.Context, caller common.Address, id uint64) (*types.Proposal, error)
}

type TxHandler interface {
	// Check validates the payload without touching any ledger.
	Check(ctx context.Context, btx *tx.DAOTx) error
	Process(ctx context.Context, g Governance, btx *tx.DAOTx) (res *abcitypes.ExecTxResult, err error)
}

func payload[T any](btx *tx.DAOTx) (*T, error) {
	p, ok := btx.Tx.(*T)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: unexpected payload for %v", tx.ErrInvalidTx, btx.Type)
	}
	return p, nil
}

func result(data any) (res *abcitypes.ExecTxResult) {
	res = &abcitypes.ExecTxResult{Code: 0}
	if data != nil {
		res.Data, _ = json.Marshal(data)
	}
	return
}
