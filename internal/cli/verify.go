package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/veracity-io/veracity/internal/model"
	"github.com/veracity-io/veracity/internal/pipeline"
)

var (
	verifyJSON     string
	verifyMD       string
	verifyTopK     int
	verifyTenant   string
	verifyTimeout  time.Duration
	verifyNoFooter bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <claim>",
	Short: "Verify a single claim against the evidence corpus",
	Long: `Verify embeds the claim, retrieves the most similar evidence, scores
each claim-evidence pair with the entailment classifier, and reduces the
scores to one verdict.

Example:
  veracity verify "laksa originated in southeast asia"
  veracity verify "the earth is flat" --json verdict.json --md verdict.md`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyJSON, "json", "", "output JSON path (optional)")
	verifyCmd.Flags().StringVar(&verifyMD, "md", "", "output Markdown path (optional)")
	verifyCmd.Flags().IntVar(&verifyTopK, "top-k", 0, "evidence items to retrieve (0 = configured default)")
	verifyCmd.Flags().StringVar(&verifyTenant, "tenant", "", "tenant id (default from config)")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", 0, "verification deadline (0 = configured default)")
	verifyCmd.Flags().BoolVar(&verifyNoFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runVerify(cmd *cobra.Command, args []string) error {
	claimText := args[0]

	app, err := newApp(context.Background(), func(cfg *model.Config) {
		if verifyTopK > 0 {
			cfg.Pipeline.TopK = verifyTopK
		}
		if verifyTenant != "" {
			cfg.Pipeline.TenantID = verifyTenant
		}
		if verifyTimeout > 0 {
			cfg.Pipeline.Deadline = verifyTimeout
		}
		if verifyNoFooter {
			cfg.Output.IncludeFooter = false
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", claimText)
		fmt.Fprintf(os.Stderr, "Tenant: %s, top-k: %d\n\n", app.cfg.Pipeline.TenantID, app.cfg.Pipeline.TopK)
	}

	result, err := app.verifier.VerifyClaim(context.Background(), claimText)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	renderer := pipeline.NewRenderer(app.cfg.Output.IncludeFooter)
	if verifyJSON != "" {
		if err := renderer.RenderJSON(result, verifyJSON); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote JSON: %s\n", verifyJSON)
		}
	}
	if verifyMD != "" {
		if err := renderer.RenderMarkdown(result, claimText, verifyMD); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Wrote Markdown: %s\n", verifyMD)
		}
	}
	renderer.RenderSummary(result, claimText)
	return nil
}
