package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/solatis/cohortkeeper/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export <segment-id>",
	Short: "Run a predefined segment and export it as a cohort",
	Long: `Run a predefined segment and build the cohort payload.

With export.url configured (or --export-url) the payload is POSTed there,
using CK_EXPORT_TOKEN as a bearer token when set. Without a URL, or with
--dry-run, the payload is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("data", "", "dataset JSON file (events or raw users); defaults to the event store")
	exportCmd.Flags().String("export-url", "", "cohort endpoint URL")
	exportCmd.Flags().Duration("export-timeout", export.DefaultTimeout, "delivery timeout")
	exportCmd.Flags().String("cohort-name", "cohort", "cohort name in the payload")
	exportCmd.Flags().Bool("dry-run", false, "print the payload instead of delivering it")
	addEngineFlags(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exec, err := runPredefined(cmd, args[0])
	if err != nil {
		return err
	}
	payload := export.ToCohort(exec, cfg.Export.CohortName)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	exporter := export.NewHTTPExporter(cfg.ExporterConfig())
	if dryRun || !exporter.Delivers() {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	if err := exporter.Export(ctx, payload); err != nil {
		var statusErr *export.StatusError
		if errors.As(err, &statusErr) {
			slog.Error("cohort delivery rejected",
				"status", statusErr.StatusCode,
				"body", statusErr.Body,
			)
		}
		return fmt.Errorf("failed to export cohort: %w", err)
	}
	slog.Info("cohort exported",
		"segment_id", args[0],
		"name", payload.Name,
		"count", payload.Count,
	)
	return nil
}
