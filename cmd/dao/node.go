package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/hac-dao/api"
	"github.com/calehh/hac-dao/app"
	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/gateway"
	"github.com/calehh/hac-dao/indexer"
	"github.com/calehh/hac-dao/state"
	"github.com/calehh/hac-dao/types"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var homeDir string

var clCmd = &cobra.Command{
	Use:   "dao",
	Short: "DAO treasury node",
	Long: `A treasury shared by its investors: members buy shares, propose
payouts and vote on them; passed proposals are paid from the treasury.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	clCmd.Flags().StringVarP(&homeDir, "homedir", "d", "", "home directory")
}

func run(cmd *cobra.Command, args []string) {
	if homeDir == "" {
		homeDir = config.DefaultHome()
	}
	cfg, err := config.LoadConfig(homeDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, config.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	genDoc, err := types.GenesisDocFromFile(cfg.GenesisFile())
	if err != nil {
		log.Fatalf("load genesis: %v", err)
	}

	db, err := state.NewStateDB(cfg.StateDir(), logger)
	if err != nil {
		log.Fatalf("open state db err:%v", err)
	}

	var (
		rail  gateway.PaymentGateway
		local *gateway.Local
	)
	switch cfg.NetworkMode() {
	case types.NetworkRemote:
		rail = gateway.NewHTTPClient(cfg.Rail.URL, cfg.Rail.Timeout, logger)
	default:
		treasury := gateway.TreasuryAddress(genDoc.ChainID)
		if common.IsHexAddress(cfg.Rail.Treasury) {
			treasury = common.HexToAddress(cfg.Rail.Treasury)
		}
		local, err = gateway.NewLocal(cfg.RailDir(), treasury, logger)
		if err != nil {
			log.Fatalf("open local rail err:%v", err)
		}
		rail = local
		if cfg.Rail.ListenAddress != "" {
			go func() {
				if err := gateway.NewServer(local, logger).Run(cfg.Rail.ListenAddress); err != nil {
					logger.Error("rail server stopped", "err", err)
				}
			}()
		}
	}

	opts := []app.Option{
		app.WithChainID(genDoc.ChainID),
		app.WithNetwork(cfg.NetworkMode()),
		app.WithBackoff(cfg.Rail.Backoff),
	}
	var idx *indexer.Indexer
	if cfg.Indexer.Enable {
		idx, err = indexer.NewIndexer(logger, cfg.IndexerDBFile())
		if err != nil {
			log.Fatalf("new indexer err %s", err.Error())
		}
		opts = append(opts, app.WithEventSink(idx))
	}

	engine := app.NewEngine(db, rail, logger, opts...)
	if err := engine.InitGenesis(context.Background(), genDoc); err != nil {
		log.Fatalf("init genesis err:%v", err)
	}
	if err := engine.CheckNetwork(context.Background()); err != nil {
		log.Fatalf("network check err:%v", err)
	}

	service := api.NewService(cfg.API.ListenAddress, engine, idx, logger)
	go func() {
		if err := service.Start(); err != nil {
			log.Fatalf("api server err %s", err.Error())
		}
	}()

	defer func() {
		log.Println("shut down...")
		done := make(chan struct{})
		go func() {
			defer close(done)
			engine.Close()
			if idx != nil {
				if err := idx.Close(); err != nil {
					logger.Error("close indexer", "err", err)
				}
			}
			if local != nil {
				if err := local.Close(); err != nil {
					logger.Error("close local rail", "err", err)
				}
			}
			if err := db.Close(); err != nil {
				logger.Error("close state db", "err", err)
			}
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
