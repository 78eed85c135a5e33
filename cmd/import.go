package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"buyerwatch/internal/entities"

	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	var sample bool

	cmd := &cobra.Command{
		Use:   "import [export.zip|export.txt]",
		Short: "Replace the stored chat history with a WhatsApp export",
		Long: `Replace the stored chat history with a WhatsApp "Export chat" file.
Both the .zip archive (with or without media) and the bare .txt are accepted.
Use --sample to load the bundled demo conversation instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if sample == (len(args) == 1) {
				return errors.New("pass either an export file or --sample")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			var batch *entities.ChatImport
			if sample {
				batch, err = a.importer.LoadSample(ctx, a.dashboard.SampleChat())
			} else {
				batch, err = importFile(cmd, a, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d messages from %s", batch.MessageCount, batch.FileName)
			if batch.SkippedFiles > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (%d media files skipped)", batch.SkippedFiles)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "load the bundled sample chat")
	return cmd
}

func importFile(cmd *cobra.Command, a *app, path string) (*entities.ChatImport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return a.importer.ImportFile(cmd.Context(), filepath.Base(path), f)
}
