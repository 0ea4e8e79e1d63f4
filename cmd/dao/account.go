package main

import (
	"encoding/hex"
	"fmt"

	"github.com/calehh/hac-dao/api"
	"github.com/calehh/hac-dao/crypto"
	"github.com/spf13/cobra"
)

type accountArguments struct {
	Url     string
	Skey    string
	Address string
	Query   bool
}

var accountArgs accountArguments

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show an account, optionally with its nonce, shares and wallet balance",
	Run:   accountRun,
}

func init() {
	urlFlag(accountCmd, &accountArgs.Url)
	keyFlag(accountCmd, &accountArgs.Skey)
	accountCmd.Flags().StringVarP(&accountArgs.Address, "address", "a", "", "account address, the key's address when empty")
	accountCmd.Flags().BoolVarP(&accountArgs.Query, "query", "q", false, "query the account on the node")
}

func accountRun(cmd *cobra.Command, args []string) {
	address := accountArgs.Address
	if address == "" {
		pv, err := crypto.LoadFilePV(accountArgs.Skey)
		if err != nil {
			fmt.Printf("load key err:%v\n", err)
			return
		}
		address = pv.Address().Hex()
		fmt.Printf("pk:%s\n", hex.EncodeToString(pv.PublicKey()))
	}
	fmt.Printf("addr:%s\n", address)
	if !accountArgs.Query {
		return
	}
	req := api.AddressReq{Address: address}
	var nonce api.NonceResponse
	if err := post(accountArgs.Url, "/getNonce", req, &nonce); err != nil {
		fmt.Printf("query nonce err:%v\n", err)
		return
	}
	var shares api.SharesResponse
	if err := post(accountArgs.Url, "/getShares", req, &shares); err != nil {
		fmt.Printf("query shares err:%v\n", err)
		return
	}
	var bal api.BalanceResponse
	if err := post(accountArgs.Url, "/walletBalance", req, &bal); err != nil {
		fmt.Printf("query wallet balance err:%v\n", err)
		return
	}
	fmt.Printf("nonce:%v shares:%v balance:%v\n", nonce.Nonce, shares.Shares, bal.Balance)
}
