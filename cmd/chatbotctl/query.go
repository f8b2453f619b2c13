package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sinbad21/Chatbot/internal/llm"
	"github.com/Sinbad21/Chatbot/internal/rag"
	"github.com/Sinbad21/Chatbot/internal/reranker"
)

var (
	queryTenantID string
	queryTopK     int
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from a tenant's documents",
	Long: `Query runs the retrieval pipeline for a tenant: embeds the question,
retrieves the most similar chunks, optionally reranks them, and
generates a grounded answer with citations.

Examples:
  chatbotctl query --tenant-id acme "Quali sono gli orari di apertura?"
  chatbotctl query --tenant-id acme --top-k 3 --json "What is the refund policy?"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryTenantID, "tenant-id", "", "Tenant identifier (required)")
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 0, "Number of chunks to retrieve (default from config)")
	_ = queryCmd.MarkFlagRequired("tenant-id")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	generator, err := llm.NewOpenAIGenerator(llm.OpenAIConfig{
		APIKey:      a.cfg.Embedding.APIKey.Value(),
		Model:       a.cfg.Generation.Model,
		BaseURL:     a.cfg.Embedding.BaseURL,
		MaxTokens:   a.cfg.Generation.MaxTokens,
		Temperature: a.cfg.Generation.Temperature,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	defer generator.Close()

	rr, err := buildReranker(a.cfg.Retrieval.RerankerURL)
	if err != nil {
		return err
	}
	if rr != nil {
		defer rr.Close()
	}

	pipeline, err := rag.New(a.embedder, a.manager, generator, rr, rag.Config{
		TopK:          a.cfg.Retrieval.TopK,
		SnippetLength: a.cfg.Retrieval.SnippetLength,
	}, a.logger)
	if err != nil {
		return err
	}

	answer, err := pipeline.Answer(cmd.Context(), queryTenantID, args[0], queryTopK)
	if err != nil {
		return err
	}

	if outputJSON {
		return json.NewEncoder(os.Stdout).Encode(answer)
	}

	fmt.Println(answer.Text)
	if len(answer.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, c := range answer.Citations {
			fmt.Printf("  [%d] %s (%s): %s\n", i+1, c.DocumentID, c.ChunkID, c.Snippet)
		}
	}
	return nil
}

// buildReranker selects the reranking strategy from config: empty
// disables reranking, "overlap" uses the local lexical reranker, any
// other value is treated as a cross-encoder service URL.
func buildReranker(url string) (reranker.Reranker, error) {
	switch url {
	case "":
		return nil, nil
	case "overlap":
		return reranker.NewOverlapReranker(), nil
	default:
		return reranker.NewHTTPReranker(url)
	}
}
