// Package zecdev and its sub-packages bootstrap a local Zcash regtest network for development and serve a faucet
// wallet on it.
/*
zecdev provides you with two programs:

1) a faucet service (package faucet) that owns the devnet wallet and implements a RESTful API to check its balances
 and addresses, sync it, shield its transparent funds and send or drip shielded funds to other addresses.

2) a devnet CLI (cmd/devnet) that bootstraps the network once the containers are up: it waits for the node, the
 indexing backend and the faucet, matures the chain, funds the faucet wallet, writes the address fixtures and then
 keeps mining one block at a regular interval. It also runs smoke checks against a running devnet.

Architecture

The faucet wallet is driven by zingo-cli (package lib/wallet/zingo). The wallet can only run one operation at a time,
so every wallet access goes through a coordinator (package lib/coordinator): reads share the wallet, while sync, shield
and send hold it exclusively. A background job keeps the wallet synced without ever queueing behind an API call.

The node is reached through its JSON-RPC interface (package lib/block). The indexing backend, lightwalletd or zaino, is
only probed for readiness over gRPC (package lib/backend).

Every send and drip is recorded in a history store (package lib/store) that can be sqlite, postgres, mongo or an
in-memory ring, and optionally published to a message broker (package lib/msg) so other tools can follow the faucet
in real time. Both are configured via a JSON config file or ZECDEV_ environment variables (package lib/config).

The services can also be monitored via a Prometheus API by setting the flag "-m" on the faucet or "--metrics" on
devnet up.

Faucet

The faucet service can be started running cmd/faucet/main.go. At startup it waits for the backend, syncs the wallet
and logs its balance before serving the API.

Devnet

The bootstrap (package devnet) runs its phases in a fixed order. Only a required service that never becomes ready
stops it; any other problem is reported as a warning in the summary table printed at the end, and the devnet keeps
running.

*/
package zecdev
