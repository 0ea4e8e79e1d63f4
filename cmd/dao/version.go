package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/calehh/hac-dao/tx"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.release=... -X main.commit=..." at build time.
var (
	release = "dev"
	commit  string
)

func releaseString() string {
	if len(commit) < 8 {
		return release
	}
	return fmt.Sprintf("%s (commit %s)", release, commit[:8])
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the dao release and the transaction format it signs",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		long, _ := cmd.Flags().GetBool("long")
		writeVersion(cmd.OutOrStdout(), long)
	},
}

func init() {
	versionCmd.Flags().Bool("long", false, "also show the tx format and toolchain")
}

func writeVersion(w io.Writer, long bool) {
	fmt.Fprintf(w, "dao %s\n", releaseString())
	if long {
		fmt.Fprintf(w, "tx format: v%d\n", tx.DAOTxVersion0)
		fmt.Fprintf(w, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	}
}
