package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solatis/cohortkeeper/internal/dataset"
)

var importCmd = &cobra.Command{
	Use:   "import <dataset.json>",
	Short: "Normalize a dataset file and load it into the event store",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	records, err := dataset.Load(args[0])
	if err != nil {
		return err
	}

	st, conn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := st.InsertEvents(ctx, records); err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	total, err := st.CountEvents(ctx)
	if err != nil {
		return err
	}

	slog.Info("dataset imported", "path", args[0], "imported", len(records), "total", total)
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d events (%d stored)\n", len(records), total)
	return nil
}
