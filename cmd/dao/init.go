package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/crypto"
	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
)

const (
	flagQuorum           = "quorum"
	flagVoteDuration     = "vote-duration"
	flagContributionTime = "contribution-time"
	flagNetwork          = "network"
	flagNoDao            = "no-dao"
)

type printInfo struct {
	ChainID  string            `json:"chain_id" yaml:"chain_id"`
	Admin    string            `json:"admin" yaml:"admin"`
	Treasury string            `json:"treasury" yaml:"treasury"`
	Home     string            `json:"home" yaml:"home"`
	Dao      *types.InitParams `json:"dao,omitempty" yaml:"dao"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the owner key, genesis and node configuration files",
	Long: `Initialize the owner key, genesis and node configuration files.
The owner key becomes the DAO administrator. Unless --no-dao is given the
DAO is initialized from genesis on first start.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(types.FlagHome, "", "node home directory")
	initCmd.Flags().Uint64(flagQuorum, 50, "percentage of all shares a proposal needs to pass")
	initCmd.Flags().Duration(flagVoteDuration, 7*24*time.Hour, "how long a proposal is open for votes")
	initCmd.Flags().Duration(flagContributionTime, 30*24*time.Hour, "how long investors may join after initialization")
	initCmd.Flags().String(flagNetwork, string(types.NetworkLocal), "payment rail: local or remote")
	initCmd.Flags().Bool(flagNoDao, false, "leave initialization to a signed init transaction")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(types.FlagHome)
	chainID, _ := cmd.Flags().GetString(types.FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(types.FlagOverwrite)
	quorum, _ := cmd.Flags().GetUint64(flagQuorum)
	voteDuration, _ := cmd.Flags().GetDuration(flagVoteDuration)
	contributionTime, _ := cmd.Flags().GetDuration(flagContributionTime)
	networkFlag, _ := cmd.Flags().GetString(flagNetwork)
	noDao, _ := cmd.Flags().GetBool(flagNoDao)

	network, err := types.ParseNetwork(networkFlag)
	if err != nil {
		return err
	}
	if chainID == "" {
		chainID = fmt.Sprintf("dao-chain-%v", rand.Uint64())
	}

	cfg := config.DefaultConfig(home)
	cfg.Network = string(network)
	if err := cfg.EnsureRoot(); err != nil {
		return err
	}
	pv, err := crypto.LoadOrGenFilePV(cfg.OwnerKeyFile())
	if err != nil {
		return err
	}

	genFile := cfg.GenesisFile()
	if cmtos.FileExists(genFile) && !overwrite {
		return fmt.Errorf("genesis file %s already exists, use --%s to replace it", genFile, types.FlagOverwrite)
	}
	genDoc := &types.GenesisDoc{
		GenesisTime: time.Now(),
		ChainID:     chainID,
		Admin:       pv.Address().Hex(),
	}
	if !noDao {
		genDoc.Dao = &types.InitParams{
			Quorum:           quorum,
			VoteDuration:     voteDuration,
			ContributionTime: contributionTime,
			Network:          network,
		}
	}
	if err = types.ExportGenesisFile(genDoc, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}

	treasury := gateway.TreasuryAddress(chainID)
	cfg.Rail.Treasury = treasury.Hex()
	if err := config.WriteConfigFile(cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return displayInfo(printInfo{
		ChainID:  chainID,
		Admin:    genDoc.Admin,
		Treasury: treasury.Hex(),
		Home:     cfg.RootDir,
		Dao:      genDoc.Dao,
	})
}
