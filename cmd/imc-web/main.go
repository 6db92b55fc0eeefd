package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	auth "github.com/islamicmasterclass/go-imc-auth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := auth.DefaultLogger()
	if err := newRootCmd(&gateway{logger: logger}).ExecuteContext(ctx); err != nil {
		logger.Error("imc-web: %v", err)
		stop()
		os.Exit(1)
	}
}
