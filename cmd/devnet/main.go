// Package main: devnet CLI. "up" bootstraps a local Zcash regtest network and keeps mining, "test" runs the smoke
// checks against it and "events" follows the faucet events published on the message broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}

		os.Exit(1)
	}
}
