package tx

import (
	"errors"
)

type DAOTxType uint8

const (
	DAOTxTypeUnknown        DAOTxType = 0
	DAOTxTypeInit           DAOTxType = 1
	DAOTxTypeJoin           DAOTxType = 2
	DAOTxTypeRedeem         DAOTxType = 3
	DAOTxTypeTransferShares DAOTxType = 4
	DAOTxTypeProposal       DAOTxType = 5
	DAOTxTypeVote           DAOTxType = 6
	DAOTxTypeExecute        DAOTxType = 7
)

func (t DAOTxType) String() string {
	switch t {
	case DAOTxTypeInit:
		return "init"
	case DAOTxTypeJoin:
		return "join"
	case DAOTxTypeRedeem:
		return "redeem"
	case DAOTxTypeTransferShares:
		return "transfer_shares"
	case DAOTxTypeProposal:
		return "proposal"
	case DAOTxTypeVote:
		return "vote"
	case DAOTxTypeExecute:
		return "execute"
	}
	return "unknown"
}

const (
	DAOTxVersion0 uint8 = 0
)

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrTxNonceInvalid       = errors.New("nonce invalid")
	ErrTxSigInvalid         = errors.New("signature invalid")
)
