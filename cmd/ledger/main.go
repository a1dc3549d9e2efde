package main

import (
	"context"
	"os/signal"
	"syscall"

	ledgerd "github.com/canopy-network/regionledger/app/ledger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	defer cancel()

	app := ledgerd.Initialize(ctx)

	app.Start(ctx)
}
