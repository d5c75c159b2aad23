package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/cohortkeeper/internal/core/api"
	"github.com/solatis/cohortkeeper/internal/rules"
	"github.com/solatis/cohortkeeper/internal/segment"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate an ad hoc rule against events",
	Long: `Evaluate a JSON rule tree against a dataset file or the event store.

Example rule:
  {"kind":"and","children":[
    {"kind":"condition","path":"event","op":"eq","value":"payment"},
    {"kind":"condition","path":"properties.amount","op":"gte","value":200}]}`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("rule", "", "rule JSON file (- for stdin)")
	runCmd.Flags().String("rule-json", "", "inline rule JSON")
	runCmd.Flags().String("predicates", "", `metric predicates JSON, e.g. '[{"field":"sessionCount","op":"gt","value":5}]'`)
	addSourceFlags(runCmd)
	addEngineFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rulePath, _ := cmd.Flags().GetString("rule")
	ruleJSON, _ := cmd.Flags().GetString("rule-json")
	raw, err := readRuleBytes(cmd, rulePath, ruleJSON)
	if err != nil {
		return err
	}
	rule, err := rules.ParseRule(raw)
	if err != nil {
		return err
	}
	if err := rules.Validate(rule); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	predsJSON, _ := cmd.Flags().GetString("predicates")
	preds, err := parsePredicates(predsJSON)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dataPath, _ := cmd.Flags().GetString("data")
	src, err := openEventSource(ctx, cfg, dataPath)
	if err != nil {
		return err
	}
	defer src.close()

	executor := newExecutor(cfg, nil)
	started := time.Now()
	exec, err := executor.ExecuteContext(ctx, rule, src.events)
	if err != nil {
		return err
	}
	if len(preds) > 0 {
		exec = segment.NewPredicateFilter(executor.Aggregator()).Apply(exec, preds)
	}
	slog.Info("segment executed",
		"segment_id", api.AdhocSegmentID,
		"users", exec.Summary.Users,
		"events", exec.Summary.Events,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	src.record(ctx, api.AdhocSegmentID, "Ad hoc rule", exec.Summary)

	return emit(cmd, exec)
}

// parsePredicates decodes and validates --predicates.
func parsePredicates(s string) ([]segment.MetricPredicate, error) {
	if s == "" {
		return nil, nil
	}
	var preds []segment.MetricPredicate
	if err := json.Unmarshal([]byte(s), &preds); err != nil {
		return nil, fmt.Errorf("invalid --predicates: %w", err)
	}
	for i, p := range preds {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --predicates[%d]: %w", i, err)
		}
	}
	return preds, nil
}
