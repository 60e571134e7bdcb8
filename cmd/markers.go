package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kwparking/parksafe/internal/model"
)

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "Print the scored marker set as JSON",
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

		markers, unresolved, err := e.Engine.Markers(ctx)
		if err != nil {
			return eris.Wrap(err, "build markers")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Markers    []model.Marker            `json:"markers"`
			Unresolved []model.UnresolvedAddress `json:"unresolved"`
		}{Markers: markers, Unresolved: unresolved})
	},
}

func init() {
	rootCmd.AddCommand(markersCmd)
}
