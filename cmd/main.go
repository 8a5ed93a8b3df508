package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"policyqa/internal/models"
	"policyqa/internal/qa"
	"policyqa/internal/store"
	cfgPkg "policyqa/pkg/config"
	"policyqa/pkg/extractor"
	"policyqa/pkg/llm"
	"policyqa/pkg/logging"
	"policyqa/pkg/processor"
	"policyqa/server"
)

type flags struct {
	configPath string
	pdfPath    string
	serve      bool
	topK       int
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.pdfPath, "pdf", "", "Policy PDF to ingest before the query loop")
	flag.BoolVar(&f.serve, "serve", false, "Run the HTTP API instead of the interactive loop")
	flag.IntVar(&f.topK, "top-k", 0, "Number of clauses to retrieve per query (default from config)")
	flag.Parse()

	return f
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	// .env is optional; real environments set the variables directly.
	_ = godotenv.Load()

	cfg, err := cfgPkg.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}
	if f.topK > 0 {
		cfg.Retrieval.TopK = f.topK
	}

	logger := logging.NewLogger(cfg.LogLevel)

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbeddingModel,
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %v", err)
	}

	analyst, err := llm.NewAnalystWithConfig(llm.AnalystConfig{
		Model:       cfg.LLM.ChatModel,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize analyst: %v", err)
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})

	engine := qa.NewEngine(qa.EngineConfig{
		DefaultTopK:     cfg.Retrieval.TopK,
		ProviderTimeout: cfg.ProviderTimeout(),
		RateLimit:       cfg.LLM.RateLimit,
	}, store.New(), extractor.NewPDFExtractor(), &chunker, embedder, analyst, logger)

	if f.serve {
		srv := server.New(server.Config{
			Port:        cfg.Server.Port,
			MaxFileSize: cfg.MaxFileSize(),
		}, engine, logger)
		return srv.Start()
	}

	if f.pdfPath == "" {
		return fmt.Errorf("either -serve or -pdf is required")
	}

	ctx := context.Background()

	data, err := os.ReadFile(f.pdfPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", f.pdfPath, err)
	}

	ingestSpinner := getSpinner(" Parsing and chunking policy...")
	ingested, err := engine.Ingest(ctx, filepath.Base(f.pdfPath), data)
	ingestSpinner.Finish()
	if err != nil {
		return fmt.Errorf("ingestion failed: %v", err)
	}
	color.Green("\n✓ Processed '%s' into %d chunks\n", ingested.Filename, ingested.NumChunks)

	embedSpinner := getSpinner(" Embedding chunks...")
	embedded, err := engine.Embed(ctx)
	embedSpinner.Finish()
	if err != nil {
		return fmt.Errorf("embedding failed: %v", err)
	}
	color.Green("\n✓ %s\n", embedded.Message)

	// Interactive query loop with colored output
	color.Cyan("\nAsk about your policy (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		querySpinner := getSpinner(" Analyzing claim...")
		result, err := engine.Query(ctx, models.Query{Text: query})
		querySpinner.Finish()
		fmt.Print("\n")

		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}

		printResult(result)
	}

	return nil
}

func printResult(result *models.AnalysisResult) {
	switch result.Decision {
	case models.DecisionApproved:
		color.Green("Decision: %s", result.Decision)
	case models.DecisionRejected:
		color.Red("Decision: %s", result.Decision)
	default:
		color.Yellow("Decision: %s", result.Decision)
	}

	if result.Amount != "" {
		fmt.Printf("Amount: %s\n", result.Amount)
	}
	fmt.Printf("Justification: %s\n", result.Justification)

	if len(result.MatchedClauses) > 0 {
		color.Cyan("\nMatched clauses:")
		for _, clause := range result.MatchedClauses {
			fmt.Printf("  [%s] %s (%s)\n", clause.ClauseID, clause.Text, clause.Document)
		}
	}
}
