package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/faucet/client"
	"github.com/tarancss/zecdev/lib/config"
	"github.com/tarancss/zecdev/lib/logging"
)

// apiTimeout bounds a faucet API call; sync and send can take minutes on a cold wallet.
const apiTimeout = 150 * time.Second

// commandContext resolves the configuration once for every subcommand.
type commandContext struct {
	v          *viper.Viper
	configFile string

	conf config.ServiceConfig
	log  *zap.Logger
}

func (c *commandContext) load() error {
	if c.log != nil {
		return nil
	}

	conf, err := config.Extract(c.v, c.configFile)
	if err != nil {
		return err
	}

	log, err := logging.New(conf.LogLevel, conf.LogDev || logging.IsTerminal(os.Stderr))
	if err != nil {
		return err
	}

	c.conf, c.log = conf, log

	return nil
}

func (c *commandContext) faucet() *client.Client {
	return client.New(c.conf.Faucet.URL, &http.Client{Timeout: apiTimeout})
}

// signalContext is cancelled on CTRL+C or docker's SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRootCommand() *cobra.Command {
	return newRoot(&commandContext{v: viper.New()})
}

func newRoot(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "devnet",
		Short:         "Zcash regtest devnet bootstrapper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if ctx.log != nil {
				_ = ctx.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path")
	pf.String("backend", config.BackendZaino, "Indexing backend: lwd, zaino or none")
	pf.String("node-url", "", "Node JSON-RPC url")
	pf.String("faucet-url", "", "Faucet API url")
	pf.String("fixtures", "", "Unified address fixture output path")

	for key, flag := range map[string]string{
		"backend.kind":       "backend",
		"node.url":           "node-url",
		"faucet.url":         "faucet-url",
		"bootstrap.fixtures": "fixtures",
	} {
		_ = ctx.v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(newUpCommand(ctx))
	rootCmd.AddCommand(newTestCommand(ctx))
	rootCmd.AddCommand(newEventsCommand(ctx))

	return rootCmd
}
