package types

import (
	"errors"
	"fmt"
	"os"
	"time"

	cmtjson "github.com/cometbft/cometbft/libs/json"
	"github.com/ethereum/go-ethereum/common"
)

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
)

const DAOModuleName = "dao"

// GenesisDoc defines the initial conditions of a DAO node. When Dao is set the
// node initializes the DAO on first start with Admin as administrator;
// otherwise the first signed init transaction does.
type GenesisDoc struct {
	GenesisTime time.Time   `json:"genesis_time"`
	ChainID     string      `json:"chain_id"`
	Admin       string      `json:"admin,omitempty"`
	Dao         *InitParams `json:"dao,omitempty"`
}

// SaveAs is a utility method for saving GenesisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (genDoc *GenesisDoc) ValidateAndComplete() error {
	if genDoc.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}
	if genDoc.Dao != nil {
		if !common.IsHexAddress(genDoc.Admin) {
			return fmt.Errorf("genesis doc admin %q is not a valid address", genDoc.Admin)
		}
		if genDoc.Dao.Network == "" {
			genDoc.Dao.Network = NetworkLocal
		}
		if err := genDoc.Dao.Validate(); err != nil {
			return fmt.Errorf("genesis dao params: %w", err)
		}
	}
	if genDoc.GenesisTime.IsZero() {
		genDoc.GenesisTime = time.Now().Round(0).UTC()
	}
	return nil
}

func (genDoc *GenesisDoc) AdminAddress() common.Address {
	return common.HexToAddress(genDoc.Admin)
}

func GenesisDocFromFile(file string) (*GenesisDoc, error) {
	dat, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("couldn't read genesis file: %w", err)
	}
	genDoc := new(GenesisDoc)
	if err = cmtjson.Unmarshal(dat, genDoc); err != nil {
		return nil, fmt.Errorf("error reading genesis from %v: %w", file, err)
	}
	if err = genDoc.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return genDoc, nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}
