package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kwparking/parksafe/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write geocoded data and markers to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
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

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("parksafe_export_%s.xlsx", time.Now().Format("20060102_150405"))
		}

		wb := export.Workbook{
			Entries: e.Cache.Entries(),
			Markers: markers,
			Stats:   e.Cache.Stats(),
		}
		if err := export.WriteFile(out, wb); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "exported %d markers (%d unresolved addresses) to %s\n",
			len(markers), len(unresolved), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default timestamped)")
	rootCmd.AddCommand(exportCmd)
}
