package main

import (
	"path/filepath"

	"github.com/calehh/hac-dao/config"
	"github.com/spf13/cobra"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:8088", "dao node api url")
}

func keyFlag(cmd *cobra.Command, key *string) {
	defaultKey := filepath.Join(config.DefaultHome(), config.DefaultConfigDir, config.DefaultOwnerKey)
	cmd.Flags().StringVarP(key, "skeyPath", "s", defaultKey, "private key path")
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	keyFlag(cmd, &args.Skey)
	cmd.Flags().Int64VarP(&args.Nonce, "nonce", "n", -1, "account nonce, queried from the node when negative")
}
