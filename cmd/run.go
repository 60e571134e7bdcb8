package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/engine"
)

var (
	runForce bool
	runNoBar bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Geocode all dataset addresses and report the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var engOpts []engine.Option
		var bar *progressbar.ProgressBar
		if !runNoBar {
			engOpts = append(engOpts, engine.WithProgress(func(done, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "geocoding")
				}
				_ = bar.Set(done)
			}))
		}

		e, err := initEnv(ctx, engOpts...)
		if err != nil {
			return eris.Wrap(err, "init")
		}
		defer e.Close()

		report, err := e.Engine.RunGeocoding(ctx, runForce)
		if err != nil {
			return eris.Wrap(err, "geocoding run")
		}
		if bar != nil {
			_ = bar.Finish()
		}

		if e.Cache.Degraded() {
			zap.L().Warn("cache persisted partially, some writes were kept in memory only")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "re-geocode addresses even when cached")
	runCmd.Flags().BoolVar(&runNoBar, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(runCmd)
}
