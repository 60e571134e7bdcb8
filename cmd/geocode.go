package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geocodeCityHint string

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Geocode a single address through the cache",
	Args:  cobra.MinimumNArgs(1),
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

		coord, err := e.Engine.GeocodeSingle(ctx, strings.Join(args, " "), geocodeCityHint)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(coord)
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeCityHint, "city", "", "city hint appended during normalization (default from config)")
	rootCmd.AddCommand(geocodeCmd)
}
