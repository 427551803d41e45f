package devnet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTransparentAddress is the transparent address of the default wallet seed. The node mines to it, so a
// faucet wallet with a different address never receives the mining rewards.
const DefaultTransparentAddress = "tmBsTi2xWTjUdEXnuTceL7fecEQKeWaPDJd"

// UnifiedAddressFixture is written for the integration tests of wallet clients.
type UnifiedAddressFixture struct {
	FaucetAddress string   `json:"faucet_address"`
	Type          string   `json:"type"`
	Receivers     []string `json:"receivers"`
}

// WriteFixture writes the unified address fixture to path, creating its directory.
func WriteFixture(path, ua string) error {
	data, err := json.MarshalIndent(UnifiedAddressFixture{
		FaucetAddress: ua,
		Type:          "unified",
		Receivers:     []string{"orchard"},
	}, "", "  ")
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gomnd // directory permissions
		return fmt.Errorf("create fixtures dir: %w", err)
	}

	if err = os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gomnd,gosec // fixtures are public
		return fmt.Errorf("write fixture %s: %w", path, err)
	}

	return nil
}
