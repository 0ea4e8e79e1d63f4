package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DAOTx is the signed envelope every state-changing request travels in.
type DAOTx struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Caller  common.Address `json:"caller"`
	Tx      any            `json:"tx"`
	Sig     []byte         `json:"sig"`
}

type InitTx struct {
	Quorum           uint64 `json:"quorum"`
	VoteDuration     int64  `json:"voteDuration"`
	ContributionTime int64  `json:"contributionTime"`
	Network          string `json:"network"`
}

type JoinTx struct {
	Amount uint64 `json:"amount"`
}

type RedeemTx struct {
	Amount      uint64         `json:"amount"`
	Destination common.Address `json:"destination"`
}

type TransferSharesTx struct {
	Amount uint64         `json:"amount"`
	To     common.Address `json:"to"`
}

type ProposalTx struct {
	Title     string         `json:"title"`
	Amount    uint64         `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

type VoteTx struct {
	Proposal uint64 `json:"proposal"`
}

type ExecuteTx struct {
	Proposal uint64 `json:"proposal"`
}

type daoTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    DAOTxType      `json:"type"`
	Nonce   uint64         `json:"nonce"`
	Caller  common.Address `json:"caller"`
	Tx      Tx             `json:"tx"`
	Sig     []byte         `json:"sig"`
}

// SigData is the message a caller signs: the tx with ext in place of the
// signature. ext binds the signature to one chain.
func (tx *DAOTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *DAOTx) Sign(key *ecdsa.PrivateKey, ext []byte) (err error) {
	tx.Caller = crypto.PubkeyToAddress(key.PublicKey)
	dat, err := tx.SigData(ext)
	if err != nil {
		return
	}
	tx.Sig, err = crypto.Sign(crypto.Keccak256(dat), key)
	return
}

// Signer recovers the address that produced Sig.
func (tx *DAOTx) Signer(ext []byte) (addr common.Address, err error) {
	if len(tx.Sig) != crypto.SignatureLength {
		return addr, ErrTxSigInvalid
	}
	dat, err := tx.SigData(ext)
	if err != nil {
		return
	}
	pub, err := crypto.SigToPub(crypto.Keccak256(dat), tx.Sig)
	if err != nil {
		return addr, fmt.Errorf("%w: %v", ErrTxSigInvalid, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func (tx *DAOTx) Verify(ext []byte) error {
	if tx.Version != DAOTxVersion0 {
		return ErrUnsupportedTxVersion
	}
	signer, err := tx.Signer(ext)
	if err != nil {
		return err
	}
	if signer != tx.Caller {
		return ErrTxSigInvalid
	}
	return nil
}

func parseDAOTxType(dat []byte) DAOTxType {
	var tx struct {
		Type DAOTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return DAOTxTypeUnknown
	}
	return tx.Type
}

func unmarshalDAOTx[Tx any](dat []byte) (btx *DAOTx, err error) {
	var txt daoTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTx, err)
	}
	btx = new(DAOTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Nonce = txt.Nonce
	btx.Caller = txt.Caller
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalDAOTx(dat []byte) (btx *DAOTx, err error) {
	tp := parseDAOTxType(dat)
	switch tp {
	case DAOTxTypeInit:
		return unmarshalDAOTx[InitTx](dat)
	case DAOTxTypeJoin:
		return unmarshalDAOTx[JoinTx](dat)
	case DAOTxTypeRedeem:
		return unmarshalDAOTx[RedeemTx](dat)
	case DAOTxTypeTransferShares:
		return unmarshalDAOTx[TransferSharesTx](dat)
	case DAOTxTypeProposal:
		return unmarshalDAOTx[ProposalTx](dat)
	case DAOTxTypeVote:
		return unmarshalDAOTx[VoteTx](dat)
	case DAOTxTypeExecute:
		return unmarshalDAOTx[ExecuteTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalDAOTx(btx *DAOTx) (dat []byte, err error) {
	return json.Marshal(btx)
}
