// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	erprag "github.com/thanhtoan105/accounting-erp-rag"
	"github.com/thanhtoan105/accounting-erp-rag/ai"
	"github.com/thanhtoan105/accounting-erp-rag/retrieval"
	"github.com/urfave/cli/v2"
)

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	app := &cli.App{
		Name:      "searcher",
		Usage:     "Print the grounded context retrieved for a question",
		ArgsUsage: "<question...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "./erp_db",
				EnvVars: []string{"ERPRAG_DB"},
			},
			&cli.StringFlag{
				Name:     "tenant",
				Aliases:  []string{"t"},
				Usage:    "Tenant (company) ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "k",
				Usage: "Number of candidate documents",
				Value: retrieval.DefaultTopK,
			},
			&cli.IntFlag{
				Name:  "budget",
				Usage: "Token budget of the packed context",
				Value: retrieval.DefaultBudget,
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				Value:   "http://localhost:11434/v1",
				EnvVars: []string{"ERPRAG_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				Value:   "embeddinggemma",
				EnvVars: []string{"ERPRAG_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-api-key",
				Usage:   "Embedding service API key",
				Value:   "none",
				EnvVars: []string{"ERPRAG_EMBEDDING_API_KEY"},
			},
		},
		Action: search,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func search(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}
	tenantId, err := uuid.Parse(c.String("tenant"))
	if err != nil {
		return fmt.Errorf("invalid tenant ID %q: %w", c.String("tenant"), err)
	}

	config := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAPIKey(c.String("embedding-api-key")),
	)
	db, err := erprag.NewDatabase(c.String("db"), erprag.WithAIConfig(config))
	if err != nil {
		return err
	}
	defer db.Close()

	packer := retrieval.NewPacker()
	packer.Budget = c.Int("budget")
	retriever, err := db.NewRetriever(retrieval.WithPacker(packer))
	if err != nil {
		return err
	}

	result, err := retriever.Retrieve(c.Context, tenantId, question, c.Int("k"))
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits, %d included (%d tokens)\n", len(result.Matches), len(result.Included), result.TokensUsed)
	for i, hit := range result.Matches {
		fmt.Printf("%d: %s/%s [%0.3f]\n", i, hit.Record.SourceTable, hit.Record.SourceId, hit.Score)
	}
	fmt.Println()
	fmt.Println(result.Context)
	return nil
}
