package main

import (
	"fmt"

	"github.com/calehh/hac-dao/api"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url      string
	Address  string
	Proposal uint64
	Page     int
	PageSize int
}

var queryArgs queryArguments

var sharesCmd = &cobra.Command{
	Use:   "shares",
	Short: "Show the shares an investor holds",
	Run: func(cmd *cobra.Command, args []string) {
		query("/getShares", api.AddressReq{Address: queryArgs.Address}, &api.SharesResponse{})
	},
}

var proposalCmd = &cobra.Command{
	Use:   "proposal",
	Short: "Show a proposal and its voters",
	Run: func(cmd *cobra.Command, args []string) {
		query("/getProposal", api.ProposalReq{ProposalId: queryArgs.Proposal}, &api.ProposalInfo{})
	},
}

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposals, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		req := api.GetProposalsReq{
			ProposerAddress: queryArgs.Address,
			Page:            queryArgs.Page,
			PageSize:        queryArgs.PageSize,
		}
		query("/getProposals", req, &api.GetProposalsResponse{})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the DAO configuration and treasury",
	Run: func(cmd *cobra.Command, args []string) {
		summary, err := queryDaoSummary(queryArgs.Url)
		if err != nil {
			fmt.Printf("query summary err:%v\n", err)
			return
		}
		printJSON(summary)
	},
}

var faucetCmd = &cobra.Command{
	Use:   "faucet",
	Short: "Fund an empty wallet with test tokens on a local rail",
	Run: func(cmd *cobra.Command, args []string) {
		query("/faucet", api.AddressReq{Address: queryArgs.Address}, &api.BalanceResponse{})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{sharesCmd, proposalCmd, proposalsCmd, summaryCmd, faucetCmd} {
		cmd.Flags().StringVarP(&queryArgs.Url, "url", "u", "http://127.0.0.1:8088", "dao node api url")
	}
	sharesCmd.Flags().StringVarP(&queryArgs.Address, "address", "a", "", "investor address")
	faucetCmd.Flags().StringVarP(&queryArgs.Address, "address", "a", "", "wallet address")
	proposalCmd.Flags().Uint64VarP(&queryArgs.Proposal, "proposal", "p", 0, "proposal id")
	proposalsCmd.Flags().StringVarP(&queryArgs.Address, "proposer", "a", "", "only proposals made by this address")
	proposalsCmd.Flags().IntVar(&queryArgs.Page, "page", 0, "page, starting at 0")
	proposalsCmd.Flags().IntVar(&queryArgs.PageSize, "pageSize", 20, "proposals per page")
}

func query(path string, req any, out any) {
	if err := post(queryArgs.Url, path, req, out); err != nil {
		fmt.Printf("query %s err:%v\n", path, err)
		return
	}
	printJSON(out)
}
