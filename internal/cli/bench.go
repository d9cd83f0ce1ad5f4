package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veracity-io/veracity/internal/bench"
	"github.com/veracity-io/veracity/internal/model"
)

var (
	benchLists     []int
	benchProbes    []int
	benchTopK      int
	benchName      string
	benchTenant    string
	benchThreshold float64
)

// benchCmd represents the bench command
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark retrieval and compare against the previous run",
	Long: `Bench replays the stored claim embeddings as queries against the
evidence index, sweeping the index tuning parameters and measuring recall
against exhaustive search and mean query latency. The best point is
persisted as a benchmark run and compared against the previous run of the
same name.

Example:
  veracity bench
  veracity bench --lists 8,16,32 --probes 1,2,4,8 --top-k 10`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntSliceVar(&benchLists, "lists", []int{8, 16}, "cluster counts to sweep")
	benchCmd.Flags().IntSliceVar(&benchProbes, "probes", []int{1, 2, 4, 8}, "probe budgets to sweep")
	benchCmd.Flags().IntVar(&benchTopK, "top-k", 10, "results per query")
	benchCmd.Flags().StringVar(&benchName, "name", "retrieval-sweep", "benchmark run name")
	benchCmd.Flags().StringVar(&benchTenant, "tenant", "", "tenant id (default from config)")
	benchCmd.Flags().Float64Var(&benchThreshold, "threshold", bench.DefaultRegressionThreshold, "regression threshold fraction")
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx, func(cfg *model.Config) {
		if benchTenant != "" {
			cfg.Pipeline.TenantID = benchTenant
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	// Replay stored claim embeddings as queries.
	claims, err := app.store.ListEmbeddings(ctx, model.EntityClaim, app.cfg.Pipeline.TenantID)
	if err != nil {
		return fmt.Errorf("load stored queries: %w", err)
	}
	if len(claims) == 0 {
		return fmt.Errorf("no stored claim embeddings to replay; verify some claims first")
	}
	queries := make([][]float32, len(claims))
	for i, c := range claims {
		queries[i] = c.Vector
	}

	harness := bench.NewHarness(app.index, app.store, app.log)
	points, err := harness.SweepRetrieval(ctx, app.cfg.Pipeline.TenantID, queries, benchTopK, benchLists, benchProbes)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	fmt.Printf("%-7s %-7s %-8s %-9s\n", "lists", "probes", "recall", "ms/query")
	for _, p := range points {
		fmt.Printf("%-7d %-7d %-8.4f %-9.3f\n", p.Lists, p.ProbeBudget, p.Recall, p.LatencyMS)
	}

	run, report, err := harness.RecordSweep(ctx, benchName, points, benchThreshold)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	fmt.Printf("\nRecorded run %s (lists=%d probes=%d recall=%.4f)\n",
		run.ID, run.Params["lists"], run.Params["probe_budget"], run.Metrics["recall"])

	if report == nil {
		fmt.Println("No previous run to compare against; this run is the baseline.")
		return nil
	}
	for _, m := range report.Metrics {
		fmt.Printf("%-12s %.4f -> %.4f  %s\n", m.Name, m.Baseline, m.Current, m.Outcome)
	}
	if report.HasRegression() {
		fmt.Fprintln(os.Stderr, "\nRegression detected against previous run")
		return fmt.Errorf("benchmark regression against run %s", report.BaselineID)
	}
	return nil
}
