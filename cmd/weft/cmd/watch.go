package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/ui"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the monitor root and re-render templates on change",
		Long: `Watch starts the live engine: file saves are debounced, changed
templates are expanded and rendered, and edits to a shared fragment
cascade to every file that includes it. Stops on Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
}

// runWatch starts the engine and blocks until interrupted.
func runWatch(ctx context.Context) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.Monitor)
	if err != nil {
		return fmt.Errorf("resolve monitor root: %w", err)
	}

	// One watcher per tree. A second instance would fight over the
	// same output files.
	lock := flock.New(filepath.Join(root, ".weft.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire watch lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another weft instance is already watching %s", root)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	eng, err := engine.New(engine.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	events, unsubscribe := eng.Subscribe(64)
	defer unsubscribe()

	printer := ui.NewPrinter(os.Stdout, root)
	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		for e := range events {
			printer.Handle(e)
		}
	}()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	eng.Stop()
	unsubscribe()
	<-printDone
	return nil
}
