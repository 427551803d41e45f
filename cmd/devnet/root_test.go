package main

import (
	"bytes"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/zecdev/lib/config"
)

func TestRootFlags(t *testing.T) {
	t.Setenv("ZECDEV_FAUCET_URL", "http://faucet:8080")

	c := &commandContext{v: viper.New()}
	cmd := newRoot(c)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--node-url", "http://zebra:8232", "--backend", "none", "--fixtures", "out/ua.json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "up")

	assert.Equal(t, "http://zebra:8232", c.conf.Node.URL)
	assert.Equal(t, config.BackendNone, c.conf.Backend.Kind)
	assert.Equal(t, "out/ua.json", c.conf.Bootstrap.Fixtures)
	assert.Equal(t, "http://faucet:8080", c.conf.Faucet.URL)
	assert.Equal(t, "http://faucet:8080", c.faucet().URL())
}

func TestRootDefaults(t *testing.T) {
	c := &commandContext{v: viper.New()}
	cmd := newRoot(c)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "http://127.0.0.1:8232", c.conf.Node.URL)
	assert.Equal(t, config.BackendZaino, c.conf.Backend.Kind)
}

func TestRootBadBackend(t *testing.T) {
	cmd := newRoot(&commandContext{v: viper.New()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "electrum"})

	require.ErrorIs(t, cmd.Execute(), config.ErrBackendKind)
}
