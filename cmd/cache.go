package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kwparking/parksafe/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the geocode cache",
}

// Estimated cost of one Google geocoding call in USD, used only for the
// savings figure in stats output.
const costPerCall = 0.005

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics and estimated API savings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return eris.Wrap(err, "init")
		}
		defer e.Close()

		stats := e.Cache.Stats()
		out := struct {
			Driver        string  `json:"driver"`
			Addresses     int     `json:"addresses"`
			APICallsSaved int     `json:"api_calls_saved"`
			CostSavedUSD  float64 `json:"cost_saved_usd"`
			FileSizeBytes int64   `json:"file_size_bytes,omitempty"`
		}{
			Driver:        cfg.Store.Driver,
			Addresses:     stats.Total,
			APICallsSaved: stats.Cached,
			CostSavedUSD:  float64(stats.Cached) * costPerCall,
		}
		if cfg.Store.Driver == "sqlite" {
			if info, err := os.Stat(cfg.Store.Path); err == nil {
				out.FileSizeBytes = info.Size()
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached geocode entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return eris.Wrap(err, "init")
		}
		defer e.Close()

		n, err := e.Cache.Clear(ctx)
		if err != nil {
			return eris.Wrap(err, "clear cache")
		}
		zap.L().Info("cache cleared", zap.Int("entries", n))
		fmt.Fprintf(os.Stdout, "cleared %d entries\n", n)
		return nil
	},
}

var cacheBackupOut string

var cacheBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write all cached entries to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return eris.Wrap(err, "init")
		}
		defer e.Close()

		out := cacheBackupOut
		if out == "" {
			out = fmt.Sprintf("geocode_cache_backup_%s.json", time.Now().Format("20060102_150405"))
		}

		entries := e.Cache.Entries()
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close()

		byAddr := make(map[string]model.GeocodeEntry, len(entries))
		for _, entry := range entries {
			byAddr[entry.Address] = entry
		}

		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(byAddr); err != nil {
			return eris.Wrap(err, "write backup")
		}

		fmt.Fprintf(os.Stdout, "backed up %d entries to %s\n", len(entries), out)
		return nil
	},
}

func init() {
	cacheBackupCmd.Flags().StringVar(&cacheBackupOut, "out", "", "backup file path (default timestamped)")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheBackupCmd)
	rootCmd.AddCommand(cacheCmd)
}
