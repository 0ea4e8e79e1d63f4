package main

import (
	"fmt"
	"os"
)

func main() {
	clCmd.AddCommand(accountCmd)
	clCmd.AddCommand(initCmd)
	clCmd.AddCommand(versionCmd)
	clCmd.AddCommand(initDaoCmd)
	clCmd.AddCommand(joinCmd)
	clCmd.AddCommand(redeemCmd)
	clCmd.AddCommand(transferCmd)
	clCmd.AddCommand(proposeCmd)
	clCmd.AddCommand(voteCmd)
	clCmd.AddCommand(executeCmd)
	clCmd.AddCommand(sharesCmd)
	clCmd.AddCommand(proposalCmd)
	clCmd.AddCommand(proposalsCmd)
	clCmd.AddCommand(summaryCmd)
	clCmd.AddCommand(faucetCmd)
	if err := clCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
