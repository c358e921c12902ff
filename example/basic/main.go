package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/siherrmann/ragpipe"
	"github.com/siherrmann/ragpipe/helper"
	"github.com/siherrmann/ragpipe/model"
)

const sampleContent = `This document explains the payment procedure.

Invoices are issued at the start of each month and must be paid within thirty days.
Late payments incur a penalty of 5 % of the invoice amount.

For questions about an invoice, contact billing@example.com with the invoice
reference, for example REF-20458. Refund requests are processed within ten days.`

func main() {
	// Loads GEMINI_API_KEY and optional overrides from .env if present.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "ragpipe_test",
		Username: "postgres",
		Password: "postgres",
		Schema:   "public",
	}

	ctx := context.Background()

	// Load the embedding, reranking and generation components.
	components, err := ragpipe.DefaultComponents(ctx)
	if err != nil {
		log.Fatalf("Failed to load components: %v", err)
	}

	pipe, err := ragpipe.NewRagPipe(dbConfig, model.DefaultPipelineConfig(), components)
	if err != nil {
		log.Fatalf("Failed to create pipeline: %v", err)
	}
	defer pipe.Close()

	// Write the sample document to disk and index it.
	dir, err := os.MkdirTemp("", "ragpipe-example")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	docPath := filepath.Join(dir, "payment-procedure.md")
	if err := os.WriteFile(docPath, []byte(sampleContent), 0o644); err != nil {
		log.Fatalf("Failed to write sample document: %v", err)
	}

	fmt.Println("Indexing document...")
	numChunks, err := pipe.Index(docPath)
	if err != nil {
		log.Fatalf("Failed to index document: %v", err)
	}
	fmt.Printf("Indexed %d chunks\n", numChunks)

	// Ask a question, misspelling included.
	queryText := "what is the procedure for late paymants"
	fmt.Printf("\nQuerying: %s\n", queryText)

	answer, err := pipe.Answer(ctx, queryText, nil)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}

	fmt.Printf("\nState: %s\n", answer.State)
	if answer.Suggestion != "" {
		fmt.Printf("Suggestion: %s\n", answer.Suggestion)
	}
	fmt.Printf("Answer: %s\n", answer.Text)
	for i, source := range answer.Sources {
		fmt.Printf("Source %d: %s (chunk %d, score %.3f)\n", i+1, source.Source, source.ChunkIndex, source.RerankerScore)
	}

	fmt.Println("\nBasic example completed successfully!")
}
