package app

import (
	"context"

	"github.com/calehh/hac-dao/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

// DeliverTx verifies a signed transaction and runs it. The returned result
// carries the events of everything the transaction committed, and may be
// non-nil together with an error when the operation committed a partial
// outcome.
func (e *Engine) DeliverTx(ctx context.Context, dat []byte) (res *abcitypes.ExecTxResult, btx *tx.DAOTx, err error) {
	btx, err = tx.UnmarshalDAOTx(dat)
	if err != nil {
		return
	}
	if err = btx.Verify([]byte(e.chainID)); err != nil {
		return
	}
	h, ok := e.txHdlrs[btx.Type]
	if !ok {
		err = tx.ErrUnsupportedTxType
		return
	}
	if err = h.Check(ctx, btx); err != nil {
		e.logger.Info("check tx fail", "type", btx.Type, "caller", btx.Caller, "err", err)
		return
	}
	if !e.beginTx(btx.Caller) {
		err = ErrOneActionInFlight
		return
	}
	defer e.endTx(btx.Caller)

	nonce, err := e.Nonce(ctx, btx.Caller)
	if err != nil {
		return
	}
	if nonce != btx.Nonce {
		err = tx.ErrTxNonceInvalid
		return
	}

	ctx, rec := recordEvents(withTxNonce(ctx, btx.Caller, btx.Nonce))
	res, err = h.Process(ctx, e, btx)
	if res != nil {
		res.Events = rec.events
	}
	if err != nil {
		e.logger.Info("process tx fail", "type", btx.Type, "caller", btx.Caller, "nonce", btx.Nonce, "err", err)
	}
	return
}

func (e *Engine) beginTx(caller common.Address) bool {
	_, loaded := e.inflight.LoadOrStore(caller, struct{}{})
	return !loaded
}

func (e *Engine) endTx(caller common.Address) {
	e.inflight.Delete(caller)
}
