// Package main provides the CLI entrypoint for wheelpoke.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/wheelpoke/internal/batch"
	"github.com/verte-zerg/wheelpoke/internal/config"
	"github.com/verte-zerg/wheelpoke/internal/events"
	"github.com/verte-zerg/wheelpoke/internal/model"
	"github.com/verte-zerg/wheelpoke/internal/stats"
	"github.com/verte-zerg/wheelpoke/internal/statsui"
	"github.com/verte-zerg/wheelpoke/internal/store"
)

var (
	analyzeWorkers     int
	analyzeGrace       float64
	analyzeLatencyStep float64
	analyzePattern     string
	analyzeDB          string
	analyzeNoStore     bool
	analyzeFirstOnly   bool
	analyzeLatencies   bool
	analyzeQuiet       bool

	reportDB string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wheelpoke",
		Short:         "Analyse wheel running and nose-poke behaviour logs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyse result logs (files or directories)",
		RunE:  runAnalyzeCmd,
	}
	cmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "files analysed in parallel (0 = one per CPU)")
	cmd.Flags().Float64Var(&analyzeGrace, "grace", events.DefaultGrace, "seconds after a reward in which pokes belong to it")
	cmd.Flags().Float64Var(&analyzeLatencyStep, "latency-step", stats.DefaultLatencyStep, "latency histogram bin width in seconds")
	cmd.Flags().StringVar(&analyzePattern, "pattern", batch.DefaultPattern, "file name glob used when walking directories")
	cmd.Flags().StringVar(&analyzeDB, "db", "", "results database (default: XDG data dir)")
	cmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not store the run in the results database")
	cmd.Flags().BoolVar(&analyzeFirstOnly, "first-only", false, "show only first-appearance performance for graded presets")
	cmd.Flags().BoolVar(&analyzeLatencies, "latencies", false, "list every reward appearance latency")
	cmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "print only the run summary")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	storeRun := !analyzeNoStore
	if fileCfg.Analyze.Store != nil && !cmd.Flags().Changed("no-store") {
		storeRun = *fileCfg.Analyze.Store
	}
	applyIntConfig(cmd, "workers", &analyzeWorkers, fileCfg.Analyze.Workers)
	applyFloatConfig(cmd, "grace", &analyzeGrace, fileCfg.Analyze.Grace)
	applyFloatConfig(cmd, "latency-step", &analyzeLatencyStep, fileCfg.Analyze.LatencyStep)
	applyStringConfig(cmd, "pattern", &analyzePattern, fileCfg.Analyze.Pattern)
	applyStringConfig(cmd, "db", &analyzeDB, fileCfg.Analyze.DBPath)
	applyBoolConfig(cmd, "first-only", &analyzeFirstOnly, fileCfg.Analyze.FirstOnly)

	cfg := model.Config{
		Workers:     analyzeWorkers,
		Grace:       analyzeGrace,
		LatencyStep: analyzeLatencyStep,
		Pattern:     analyzePattern,
		DBPath:      resolveDBPath(analyzeDB),
		Store:       storeRun,
		FirstOnly:   analyzeFirstOnly,
		Latencies:   analyzeLatencies,
		Quiet:       analyzeQuiet,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	if len(args) == 0 {
		args = []string{"."}
	}
	paths, err := batch.Discover(args, cfg.Pattern)
	if err != nil {
		return fmt.Errorf("failed to find result files: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outcomes, err := batch.Run(ctx, paths, cfg.Workers)
	if err != nil {
		return fmt.Errorf("analysis interrupted: %w", err)
	}

	out := cmd.OutOrStdout()
	opts := stats.Options{Grace: cfg.Grace, LatencyStep: cfg.LatencyStep, Hours: stats.DefaultHours}
	renderOpts := stats.RenderOptions{
		Height:    8,
		UseColor:  useColor(os.Stdout),
		Latencies: cfg.Latencies,
		FirstOnly: cfg.FirstOnly,
	}
	records := make([]model.FileRecord, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err != nil {
			errorf("%v\n", o.Err)
			records = append(records, stats.FailedRecord(o.Path, o.Err))
			continue
		}
		rep := stats.BuildFileReport(o.Result, opts)
		if rep.PerformanceWarning != "" {
			warnf("%s: %s\n", o.Path, rep.PerformanceWarning)
		}
		if rep.Pokes.Ambiguous > 0 {
			warnf("%s: %d poke events with more than one reward have no latency\n", o.Path, rep.Pokes.Ambiguous)
		}
		if !cfg.Quiet {
			if err := stats.RenderFileReport(out, rep, renderOpts); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
		}
		records = append(records, rep.Record(o.Result))
	}

	failed := batch.Failed(outcomes)
	summary := fmt.Sprintf("Analysed %d files, %d failed", len(outcomes), failed)
	if cfg.Store {
		runID, err := storeRecords(ctx, cfg.DBPath, records)
		if err != nil {
			return err
		}
		summary += fmt.Sprintf(", stored as run %s", runID)
	}
	if _, err := fmt.Fprintln(out, summary); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if failed == len(outcomes) {
		return errors.New("no file could be analysed")
	}
	return nil
}

func storeRecords(ctx context.Context, dbPath string, records []model.FileRecord) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	runID, err := st.InsertRun(ctx, model.RunSummary{}, records)
	if err != nil {
		return "", fmt.Errorf("failed to store run: %w", err)
	}
	return runID, nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored analysis runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().StringVar(&reportDB, "db", "", "results database (default: XDG data dir)")
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	st, err := openReportStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		logErrln("No runs stored yet. Analyse logs with: wheelpoke analyze <dir>")
		return nil
	}
	return writeRuns(cmd.OutOrStdout(), runs)
}

func writeRuns(w io.Writer, runs []model.RunSummary) error {
	for _, run := range runs {
		if _, err := fmt.Fprintf(w, "%s  %s  files=%d failed=%d\n",
			run.RunID, run.CreatedAt.Local().Format("2006-01-02 15:04:05"), run.Files, run.Failed); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Browse a stored run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReportCmd,
	}
	cmd.Flags().StringVar(&reportDB, "db", "", "results database (default: XDG data dir)")
	return cmd
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	st, err := openReportStore(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}
	if _, err := stats.BuildStoredReport(cmd.Context(), st, runID); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			logErrln("Run not found. List stored runs with: wheelpoke runs")
		}
		return fmt.Errorf("failed to load run: %w", err)
	}

	ui := statsui.NewModel(st, runID)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run report TUI: %w", err)
	}
	return nil
}

func openReportStore(cmd *cobra.Command) (*store.Store, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "db", &reportDB, fileCfg.Analyze.DBPath)
	st, err := store.Open(resolveDBPath(reportDB))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# wheelpoke configuration
# Uncomment a value to enable it. CLI flags override config values.

[analyze]
# workers = 4             # Files analysed in parallel (0 = one per CPU)
# grace = %.1f            # Seconds after a reward in which pokes belong to it
# latency-step = %.2f     # Latency histogram bin width in seconds
# pattern = %q   # File name glob used when walking directories
# store = true            # Store runs in the results database
# first-only = false      # Show only first-appearance performance for graded presets
# db = %q
`,
		events.DefaultGrace,
		stats.DefaultLatencyStep,
		batch.DefaultPattern,
		config.DefaultDBPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if cfg.Grace <= 0 {
		return fmt.Errorf("--grace must be > 0")
	}
	if cfg.LatencyStep <= 0 {
		return fmt.Errorf("--latency-step must be > 0")
	}
	if strings.TrimSpace(cfg.Pattern) == "" {
		return fmt.Errorf("--pattern must not be empty")
	}
	if _, err := filepath.Match(cfg.Pattern, ""); err != nil {
		return fmt.Errorf("--pattern is not a valid glob: %w", err)
	}
	return nil
}

func resolveDBPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return config.DefaultDBPath()
	}
	return path
}
