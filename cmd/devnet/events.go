package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tarancss/zecdev/lib/msg/amqp"
)

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var queue string

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the faucet events published on the message broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			mb, err := amqp.New(ctx.conf.MbConn, ctx.log)
			if err != nil {
				return err
			}

			defer func() {
				if err := mb.Close(); err != nil {
					ctx.log.Warn("closing message broker", zap.Error(err))
				}
			}()

			if err = mb.Setup(); err != nil {
				return err
			}

			events, errs, err := mb.GetEvents(queue)
			if err != nil {
				return err
			}

			sctx, stop := signalContext(cmd.Context())
			defer stop()

			enc := json.NewEncoder(cmd.OutOrStdout())

			for {
				select {
				case <-sctx.Done():
					return nil
				case e, ok := <-events:
					if !ok {
						return nil
					}

					if err := enc.Encode(e); err != nil {
						return err
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil

						continue
					}

					ctx.log.Warn("skipping malformed event", zap.Error(err))
				}
			}
		},
	}

	cmd.Flags().StringVar(&queue, "queue", "devnet-events", "Queue bound to the faucet events")

	return cmd
}
