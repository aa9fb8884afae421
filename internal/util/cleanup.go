package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SetupInterruptHandler returns a context that is cancelled on SIGINT or
// SIGTERM. Temp files in outputDir are removed when the signal arrives; a
// second signal exits immediately.
func SetupInterruptHandler(parent context.Context, outputDir string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sig)

		select {
		case <-sig:
		case <-ctx.Done():
			return
		}

		fmt.Println("\nInterrupt received. Saving what has been harvested...")
		for _, name := range CleanupTempFiles(outputDir) {
			fmt.Printf("Removed %s\n", name)
		}
		cancel()

		select {
		case <-sig:
			fmt.Println("\nExiting due to interrupt.")
			os.Exit(1)
		case <-parent.Done():
		}
	}()

	return ctx, cancel
}

func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		if err := os.Remove(dir); err == nil {
			fmt.Printf("Removed empty output folder: %s\n", dir)
		}
	}
}
