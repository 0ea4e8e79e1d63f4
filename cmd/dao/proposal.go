package main

import (
	"fmt"

	"github.com/calehh/hac-dao/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type proposeArguments struct {
	txArguments
	Title     string
	Amount    uint64
	Recipient string
}

var proposeArgs proposeArguments

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose a payout from the treasury",
	Run:   proposeRun,
}

func init() {
	txFlags(proposeCmd, &proposeArgs.txArguments)
	proposeCmd.Flags().StringVarP(&proposeArgs.Title, "title", "t", "", "proposal title")
	proposeCmd.Flags().Uint64VarP(&proposeArgs.Amount, "amount", "a", 0, "amount to pay")
	proposeCmd.Flags().StringVarP(&proposeArgs.Recipient, "recipient", "r", "", "wallet paid when the proposal passes")
}

func proposeRun(cmd *cobra.Command, args []string) {
	if !common.IsHexAddress(proposeArgs.Recipient) {
		fmt.Printf("invalid recipient:%v\n", proposeArgs.Recipient)
		return
	}
	submit(proposeArgs.txArguments, tx.DAOTxTypeProposal, &tx.ProposalTx{
		Title:     proposeArgs.Title,
		Amount:    proposeArgs.Amount,
		Recipient: common.HexToAddress(proposeArgs.Recipient),
	})
}

type proposalArguments struct {
	txArguments
	Proposal uint64
}

var voteArgs proposalArguments

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Vote for a proposal with all of your shares",
	Run: func(cmd *cobra.Command, args []string) {
		submit(voteArgs.txArguments, tx.DAOTxTypeVote, &tx.VoteTx{Proposal: voteArgs.Proposal})
	},
}

var executeArgs proposalArguments

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Settle a proposal whose voting period has ended",
	Run: func(cmd *cobra.Command, args []string) {
		submit(executeArgs.txArguments, tx.DAOTxTypeExecute, &tx.ExecuteTx{Proposal: executeArgs.Proposal})
	},
}

func init() {
	txFlags(voteCmd, &voteArgs.txArguments)
	voteCmd.Flags().Uint64VarP(&voteArgs.Proposal, "proposal", "p", 0, "proposal id")

	txFlags(executeCmd, &executeArgs.txArguments)
	executeCmd.Flags().Uint64VarP(&executeArgs.Proposal, "proposal", "p", 0, "proposal id")
}
