package api

import (
	"errors"
	"net/http"

	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
)

var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrIndexerDisabled = errors.New("indexer is disabled")
)

var statusCodes = []struct {
	err    error
	status int
}{
	{types.ErrInvalidAmount, http.StatusBadRequest},
	{types.ErrInvalidConfig, http.StatusBadRequest},
	{types.ErrInvalidProposal, http.StatusBadRequest},
	{tx.ErrInvalidTx, http.StatusBadRequest},
	{tx.ErrUnsupportedTxType, http.StatusBadRequest},
	{tx.ErrUnsupportedTxVersion, http.StatusBadRequest},
	{ErrInvalidAddress, http.StatusBadRequest},

	{types.ErrUnauthorized, http.StatusForbidden},
	{types.ErrNotAMember, http.StatusForbidden},
	{tx.ErrTxSigInvalid, http.StatusForbidden},
	{gateway.ErrFaucetDisabled, http.StatusForbidden},

	{types.ErrProposalNotFound, http.StatusNotFound},

	// rail outcomes first: they wrap the rail error that caused them
	{types.ErrTransferPending, http.StatusServiceUnavailable},
	{types.ErrExternalTransferFailed, http.StatusBadGateway},
	{gateway.ErrUnavailable, http.StatusBadGateway},

	{types.ErrNotInitialized, http.StatusConflict},
	{types.ErrAlreadyInitialized, http.StatusConflict},
	{types.ErrContributionWindowClosed, http.StatusConflict},
	{types.ErrInsufficientShares, http.StatusConflict},
	{types.ErrInsufficientFunds, http.StatusConflict},
	{types.ErrProposalExpired, http.StatusConflict},
	{types.ErrProposalNotYetEnded, http.StatusConflict},
	{types.ErrProposalAlreadyEnded, http.StatusConflict},
	{types.ErrDuplicateVote, http.StatusConflict},
	{types.ErrProposalBusy, http.StatusConflict},
	{tx.ErrTxNonceInvalid, http.StatusConflict},
	{app.ErrOneActionInFlight, http.StatusConflict},
	{gateway.ErrFaucetWalletFunded, http.StatusConflict},
	{gateway.ErrInsufficientBalance, http.StatusConflict},

	{ErrIndexerDisabled, http.StatusServiceUnavailable},
}

// StatusCode maps a governance error to the HTTP status the API answers with.
func StatusCode(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
