package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/solatis/cohortkeeper/internal/core/config"
	"github.com/solatis/cohortkeeper/internal/core/db"
	"github.com/solatis/cohortkeeper/internal/core/metrics"
	"github.com/solatis/cohortkeeper/internal/dataset"
	"github.com/solatis/cohortkeeper/internal/export"
	"github.com/solatis/cohortkeeper/internal/segment"
	"github.com/solatis/cohortkeeper/internal/store"
	"github.com/solatis/cohortkeeper/internal/types"
)

// Output formats for execution results.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// loadConfig merges the config file, CK_ environment and the command's flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newExecutor builds an executor whose swallowed row failures are logged and
// counted.
func newExecutor(cfg *config.Config, recorder *metrics.Recorder) *segment.Executor {
	return segment.NewExecutor(segment.Config{
		Session: cfg.SessionConfig(),
		Workers: cfg.Engine.Workers,
		OnRowError: func(rec types.EventRecord, err error) {
			recorder.RowFailed()
			slog.Warn("row evaluation failed",
				"user_id", rec.UserID,
				"event", rec.Event,
				"timestamp", rec.Timestamp,
				"error", err,
			)
		},
	})
}

// openStore opens and migrates the configured database.
// The caller closes the returned connection.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, *sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("--db-url required (or CK_DATABASE_URL)")
	}
	conn, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.MigrateUp(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	queries, err := db.LoadQueries(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return store.New(queries), conn, nil
}

// eventSource resolves where a command reads events from: a dataset file
// when --data is given, otherwise the event store.
type eventSource struct {
	events []types.EventRecord
	store  *store.Store
	close  func() error
}

func openEventSource(ctx context.Context, cfg *config.Config, dataPath string) (*eventSource, error) {
	if dataPath != "" {
		events, err := dataset.Load(dataPath)
		if err != nil {
			return nil, err
		}
		slog.Debug("dataset loaded", "path", dataPath, "events", len(events))
		return &eventSource{events: events, close: func() error { return nil }}, nil
	}

	st, conn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("no --data file given: %w", err)
	}
	events, err := st.LoadEvents(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	slog.Debug("events loaded from store", "events", len(events))
	return &eventSource{events: events, store: st, close: conn.Close}, nil
}

// record appends the run to the execution log when events came from the store.
func (s *eventSource) record(ctx context.Context, segmentID, label string, summary types.SegmentSummary) {
	if s.store == nil {
		return
	}
	rec := store.NewExecutionRecord(segmentID, label, summary)
	if err := s.store.RecordExecution(ctx, rec); err != nil {
		slog.Warn("execution log write failed", "segment_id", segmentID, "error", err)
		return
	}
	slog.Debug("execution recorded", "execution_id", rec.ID, "segment_id", segmentID)
}

// writeExecution renders exec as indented JSON or CSV.
func writeExecution(w io.Writer, exec types.SegmentExecution, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exec)
	case formatCSV:
		if err := export.WriteCSV(w, exec); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	default:
		return fmt.Errorf("unsupported --format %q (want json or csv)", format)
	}
}

// openOutput returns stdout or the named file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, f.Close, nil
}

// readRuleBytes reads a rule from --rule (file path, or "-" for stdin) or --rule-json.
func readRuleBytes(cmd *cobra.Command, path, inline string) ([]byte, error) {
	switch {
	case inline != "" && path != "":
		return nil, fmt.Errorf("use either --rule or --rule-json, not both")
	case inline != "":
		return []byte(inline), nil
	case path == "-":
		return io.ReadAll(cmd.InOrStdin())
	case path != "":
		return os.ReadFile(path)
	default:
		return nil, fmt.Errorf("--rule or --rule-json required")
	}
}

// addEngineFlags declares the flags that tune the executor.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("inactivity-gap", segment.DefaultInactivityGap, "inactivity gap that splits inferred sessions")
	cmd.Flags().Float64("session-threshold", 0, "fraction of events with a session id above which explicit sessions are used")
	cmd.Flags().Int("workers", segment.DefaultWorkers, "parallel evaluation workers")
}

// addSourceFlags declares --data and the output flags.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("data", "", "dataset JSON file (events or raw users); defaults to the event store")
	cmd.Flags().String("format", formatJSON, "output format (json, csv)")
	cmd.Flags().StringP("output", "o", "", "output file (default stdout)")
}

// emit writes exec to --output in --format.
func emit(cmd *cobra.Command, exec types.SegmentExecution) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	w, closeOut, err := openOutput(cmd, outPath)
	if err != nil {
		return err
	}
	if err := writeExecution(w, exec, format); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}
