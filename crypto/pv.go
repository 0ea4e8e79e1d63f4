package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"

	"github.com/calehh/hac-dao/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PV is an investor or administrator key kept as a hex file on disk.
type PV struct {
	privateKey *ecdsa.PrivateKey
}

func NewPV(key *ecdsa.PrivateKey) *PV {
	return &PV{privateKey: key}
}

func LoadFilePV(keyFilePath string) (*PV, error) {
	key, err := crypto.LoadECDSA(keyFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading key from %v: %w", keyFilePath, err)
	}
	return &PV{privateKey: key}, nil
}

// GenFilePV creates a new key and saves it to keyFilePath. An existing file
// is never overwritten.
func GenFilePV(keyFilePath string) (*PV, error) {
	if _, err := os.Stat(keyFilePath); err == nil {
		return nil, fmt.Errorf("key file %v already exists", keyFilePath)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = crypto.SaveECDSA(keyFilePath, key); err != nil {
		return nil, err
	}
	return &PV{privateKey: key}, nil
}

func LoadOrGenFilePV(keyFilePath string) (*PV, error) {
	_, err := os.Stat(keyFilePath)
	switch {
	case err == nil:
		return LoadFilePV(keyFilePath)
	case errors.Is(err, os.ErrNotExist):
		return GenFilePV(keyFilePath)
	}
	return nil, err
}

func (k *PV) PublicKey() []byte {
	return crypto.FromECDSAPub(&k.privateKey.PublicKey)
}

func (k *PV) Address() common.Address {
	return crypto.PubkeyToAddress(k.privateKey.PublicKey)
}

func (k *PV) Sign(data []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256(data), k.privateKey)
}

// SignTx signs btx for chainID and sets its caller to this key.
func (k *PV) SignTx(btx *tx.DAOTx, chainID string) error {
	return btx.Sign(k.privateKey, []byte(chainID))
}
