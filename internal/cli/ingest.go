package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veracity-io/veracity/internal/model"
)

var ingestTenant string

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <evidence-file>",
	Short: "Ingest evidence documents from a JSONL file",
	Long: `Ingest reads evidence documents from a JSON-lines file, embeds them,
and adds them to the searchable corpus. Each line is an object:

  {"id": "ev-1", "text": "laksa is a spicy noodle soup", "tenant_id": "default"}

tenant_id is optional and defaults to the configured tenant. Re-ingesting
an existing id replaces its text and embedding.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "tenant id for documents without one")
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := newApp(context.Background(), func(cfg *model.Config) {
		if ingestTenant != "" {
			cfg.Pipeline.TenantID = ingestTenant
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := readEvidenceFile(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no evidence documents in %s", args[0])
	}

	n, err := app.ingester.IngestEvidence(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("ingested %d of %d documents: %w", n, len(docs), err)
	}

	fmt.Printf("Ingested %d evidence documents\n", n)
	return nil
}

func readEvidenceFile(path string) ([]model.EvidenceDoc, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var docs []model.EvidenceDoc
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc model.EvidenceDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return docs, nil
}
