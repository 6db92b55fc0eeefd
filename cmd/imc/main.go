package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	auth "github.com/islamicmasterclass/go-imc-auth"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "close store: %v\n", cerr)
	}
	if err == nil {
		return
	}

	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		fmt.Fprintln(os.Stderr, "\nOperation cancelled")
		os.Exit(130)
	case auth.IsUnauthorizedError(err):
		fmt.Fprintln(os.Stderr, "Error: the backend refused the stored session, run `imc login` again")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
