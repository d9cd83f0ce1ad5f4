package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/veracity-io/veracity/internal/model"
)

// Renderer writes verification results as JSON, Markdown or a short
// stdout summary.
type Renderer struct {
	includeFooter bool
	out           io.Writer
}

// NewRenderer creates a renderer. Summary output goes to stdout.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, out: os.Stdout}
}

// RenderJSON writes the result as indented JSON to the given path.
func (r *Renderer) RenderJSON(result *model.VerificationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes a human-readable report to the given path.
func (r *Renderer) RenderMarkdown(result *model.VerificationResult, claimText string, path string) error {
	var b strings.Builder

	b.WriteString("# Claim Verification Report\n\n")
	fmt.Fprintf(&b, "**Claim:** %s\n\n", claimText)
	fmt.Fprintf(&b, "**Verdict:** %s (confidence %.2f)\n\n", result.Verdict, result.Confidence)

	b.WriteString("## Evidence\n\n")
	fmt.Fprintf(&b, "| Class | Count | Weighted score |\n")
	fmt.Fprintf(&b, "|-------|-------|----------------|\n")
	fmt.Fprintf(&b, "| Supporting | %d | %.4f |\n", result.SupportingEvidenceCount, result.SupportScore)
	fmt.Fprintf(&b, "| Refuting | %d | %.4f |\n", result.RefutingEvidenceCount, result.RefuteScore)
	fmt.Fprintf(&b, "| Neutral | %d | %.4f |\n\n", result.NeutralEvidenceCount, result.NeutralScore)

	b.WriteString("## Reasoning\n\n")
	b.WriteString(result.Reasoning)
	b.WriteString("\n\n")

	b.WriteString("## Run\n\n")
	fmt.Fprintf(&b, "- Result ID: `%s`\n", result.ID)
	fmt.Fprintf(&b, "- Claim ID: `%s`\n", result.ClaimID)
	fmt.Fprintf(&b, "- Pipeline: %s, retrieval: %s\n", result.PipelineVersion, result.RetrievalMethod)
	fmt.Fprintf(&b, "- Created: %s\n", result.CreatedAt.Format("2006-01-02 15:04:05 UTC"))

	if r.includeFooter {
		b.WriteString("\n---\n\nGenerated by veracity.\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a one-screen summary to stdout.
func (r *Renderer) RenderSummary(result *model.VerificationResult, claimText string) {
	fmt.Fprintf(r.out, "\nClaim:   %s\n", claimText)
	fmt.Fprintf(r.out, "Verdict: %s (confidence %.2f)\n", result.Verdict, result.Confidence)
	fmt.Fprintf(r.out, "Evidence: %d total / %d supporting / %d refuting / %d neutral\n",
		result.EvidenceCount,
		result.SupportingEvidenceCount,
		result.RefutingEvidenceCount,
		result.NeutralEvidenceCount)
	fmt.Fprintf(r.out, "Reasoning: %s\n", result.Reasoning)
}
