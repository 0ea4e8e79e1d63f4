package main

import (
	"fmt"
	"time"

	"github.com/calehh/hac-dao/tx"
	"github.com/calehh/hac-dao/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type initDaoArguments struct {
	txArguments
	Quorum           uint64
	VoteDuration     time.Duration
	ContributionTime time.Duration
	Network          string
}

var initDaoArgs initDaoArguments

var initDaoCmd = &cobra.Command{
	Use:   "initdao",
	Short: "Initialize the DAO with a signed init transaction",
	Run:   initDaoRun,
}

func init() {
	txFlags(initDaoCmd, &initDaoArgs.txArguments)
	initDaoCmd.Flags().Uint64Var(&initDaoArgs.Quorum, flagQuorum, 50, "percentage of all shares a proposal needs to pass")
	initDaoCmd.Flags().DurationVar(&initDaoArgs.VoteDuration, flagVoteDuration, 7*24*time.Hour, "how long a proposal is open for votes")
	initDaoCmd.Flags().DurationVar(&initDaoArgs.ContributionTime, flagContributionTime, 30*24*time.Hour, "how long investors may join")
	initDaoCmd.Flags().StringVar(&initDaoArgs.Network, flagNetwork, string(types.NetworkLocal), "payment rail: local or remote")
}

func initDaoRun(cmd *cobra.Command, args []string) {
	stx := &tx.InitTx{
		Quorum:           initDaoArgs.Quorum,
		VoteDuration:     int64(initDaoArgs.VoteDuration.Seconds()),
		ContributionTime: int64(initDaoArgs.ContributionTime.Seconds()),
		Network:          initDaoArgs.Network,
	}
	submit(initDaoArgs.txArguments, tx.DAOTxTypeInit, stx)
}

type amountArguments struct {
	txArguments
	Amount uint64
	To     string
}

var joinArgs amountArguments

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Contribute funds to the treasury for shares",
	Run: func(cmd *cobra.Command, args []string) {
		submit(joinArgs.txArguments, tx.DAOTxTypeJoin, &tx.JoinTx{Amount: joinArgs.Amount})
	},
}

var redeemArgs amountArguments

var redeemCmd = &cobra.Command{
	Use:   "redeem",
	Short: "Burn shares and withdraw the same amount of funds",
	Run: func(cmd *cobra.Command, args []string) {
		if !common.IsHexAddress(redeemArgs.To) {
			fmt.Printf("invalid destination:%v\n", redeemArgs.To)
			return
		}
		submit(redeemArgs.txArguments, tx.DAOTxTypeRedeem, &tx.RedeemTx{
			Amount:      redeemArgs.Amount,
			Destination: common.HexToAddress(redeemArgs.To),
		})
	},
}

var transferArgs amountArguments

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer shares to another investor",
	Run: func(cmd *cobra.Command, args []string) {
		if !common.IsHexAddress(transferArgs.To) {
			fmt.Printf("invalid recipient:%v\n", transferArgs.To)
			return
		}
		submit(transferArgs.txArguments, tx.DAOTxTypeTransferShares, &tx.TransferSharesTx{
			Amount: transferArgs.Amount,
			To:     common.HexToAddress(transferArgs.To),
		})
	},
}

func init() {
	txFlags(joinCmd, &joinArgs.txArguments)
	joinCmd.Flags().Uint64VarP(&joinArgs.Amount, "amount", "a", 0, "amount to contribute")

	txFlags(redeemCmd, &redeemArgs.txArguments)
	redeemCmd.Flags().Uint64VarP(&redeemArgs.Amount, "amount", "a", 0, "shares to redeem")
	redeemCmd.Flags().StringVarP(&redeemArgs.To, "to", "t", "", "wallet receiving the funds")

	txFlags(transferCmd, &transferArgs.txArguments)
	transferCmd.Flags().Uint64VarP(&transferArgs.Amount, "amount", "a", 0, "shares to transfer")
	transferCmd.Flags().StringVarP(&transferArgs.To, "to", "t", "", "receiving investor")
}

func submit(args txArguments, txType tx.DAOTxType, stx any) {
	res, err := sendTx(args, txType, stx)
	if err != nil {
		fmt.Printf("%s tx err:%v\n", txType, err)
		return
	}
	printJSON(res)
}
