package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitLocked is the status for a catalog change refused by the daemon lock.
const exitLocked = 3

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "kinobot:", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errCatalogLocked):
		return exitLocked
	default:
		return 1
	}
}
