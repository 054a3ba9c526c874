package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/weftlabs/weft/internal/engine"
	"github.com/weftlabs/weft/internal/refindex"
	"github.com/weftlabs/weft/internal/ui"
)

// buildWorkers bounds concurrent renders during a one-shot build.
const buildWorkers = 8

func newBuildCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render every template under the monitor root once",
		Long: `Build performs a one-shot render of every matching template file
under the monitor root, without watching. Partials are expanded only
through the files that include them and produce no output themselves.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Expand templates without writing output files")
	return cmd
}

func runBuild(dryRun bool) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	root, err := filepath.Abs(cfg.Monitor)
	if err != nil {
		return fmt.Errorf("resolve monitor root: %w", err)
	}

	opts := engine.OptionsFromConfig(cfg)
	opts.Root = root
	opts.WriteOutputs = !dryRun

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if refindex.MatchesExtension(path, cfg.Extensions) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan monitor root: %w", err)
	}

	printer := ui.NewPrinter(os.Stdout, root)

	var mu sync.Mutex
	failed := 0

	g := new(errgroup.Group)
	g.SetLimit(buildWorkers)
	for _, path := range files {
		path := path
		g.Go(func() error {
			result := eng.Process(path)

			mu.Lock()
			defer mu.Unlock()
			if result.Success {
				printer.Handle(engine.ProcessSucceeded{Result: result})
			} else {
				printer.Handle(engine.ProcessFailed{Result: result})
				failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
