package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veracity-io/veracity/internal/worker"
)

var batchConcurrency int

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <claims-file>",
	Short: "Verify many claims from a file",
	Long: `Batch verifies one claim per line from the given file, concurrently.
Blank lines and lines starting with # are skipped; duplicate lines are
verified once.

Example:
  veracity batch claims.txt
  veracity batch claims.txt --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent verifications (0 = configured default)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	app, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer app.Close()

	concurrency := app.cfg.Concurrency.BatchWorkers
	if batchConcurrency > 0 {
		concurrency = batchConcurrency
	}

	processor := worker.NewBatchProcessor(app.verifier, concurrency)
	results, err := processor.ProcessFile(context.Background(), args[0])
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAILED  %s: %v\n", r.ClaimText, r.Error)
			continue
		}
		fmt.Printf("%-12s %.2f  %s\n", r.Result.Verdict, r.Result.Confidence, r.ClaimText)
	}

	fmt.Fprintf(os.Stderr, "\n%d verified, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d claims failed", failed, len(results))
	}
	return nil
}
