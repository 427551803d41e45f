package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tarancss/zecdev/devnet/smoke"
	"github.com/tarancss/zecdev/lib/block"
)

func newTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run the smoke checks against a running devnet",
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := block.Init(ctx.conf.Node)
			if err != nil {
				return err
			}
			defer node.Close()

			sctx, stop := signalContext(cmd.Context())
			defer stop()

			res := smoke.New(node, ctx.faucet(), ctx.log.Named("smoke")).Run(sctx)
			smoke.Print(cmd.OutOrStdout(), res)

			if n := smoke.Failed(res); n > 0 {
				return fmt.Errorf("%d of %d smoke checks failed", n, len(res))
			}

			return nil
		},
	}
}
