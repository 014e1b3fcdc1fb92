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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	erprag "github.com/thanhtoan105/accounting-erp-rag"
	"github.com/thanhtoan105/accounting-erp-rag/core"
	"github.com/thanhtoan105/accounting-erp-rag/pipeline"
	"github.com/thanhtoan105/accounting-erp-rag/scanner"
	"github.com/urfave/cli/v2"
)

// openDatabase opens the database named by --db. withEmbedding builds the
// AI provider from the embedding flags; otherwise defaults are used and the
// provider is never called.
func openDatabase(c *cli.Context, withEmbedding bool) (*erprag.Database, int, error) {
	path, err := dbPath(c)
	if err != nil {
		return nil, 0, err
	}

	var opts []erprag.DatabaseOption
	dimensions := 0
	if withEmbedding {
		config, err := aiConfig(c)
		if err != nil {
			return nil, 0, err
		}
		dimensions = config.Dimensions
		opts = append(opts, erprag.WithAIConfig(config))
	}

	db, err := erprag.NewDatabase(path, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open database: %w", err)
	}
	return db, dimensions, nil
}

func parseTenant(c *cli.Context) (uuid.UUID, error) {
	value := c.String("tenant")
	if value == "" {
		return uuid.Nil, nil
	}
	tenantId, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid tenant ID %q: %w", value, err)
	}
	return tenantId, nil
}

func indexCommand(c *cli.Context) error {
	tenantId, err := parseTenant(c)
	if err != nil {
		return err
	}
	batchType, err := core.ParseBatchType(c.String("type"))
	if err != nil {
		return err
	}

	db, dimensions, err := openDatabase(c, true)
	if err != nil {
		return err
	}
	defer db.Close()

	orchestrator, err := db.NewOrchestrator(pipeline.WithConfig(pipelineConfigFrom(c, dimensions)))
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := pipeline.Request{
		TenantId:    tenantId,
		Type:        batchType,
		TriggeredBy: c.String("triggered-by"),
		Tables:      c.StringSlice("table"),
		Since:       c.Timestamp("since"),
	}
	outcome, runErr := orchestrator.RunBatch(ctx, req)

	out := c.App.Writer
	fmt.Fprintf(out, "Batch: %s\n", outcome.BatchId)
	if outcome.Duplicate {
		fmt.Fprintln(out, "Duplicate: an active batch with the same parameters is already running")
		return nil
	}
	if outcome.BatchId != uuid.Nil {
		if batch, err := orchestrator.Batch(context.Background(), outcome.BatchId); err == nil {
			printBatch(c, batch)
		}
	}
	if runErr != nil {
		return fmt.Errorf("batch failed: %w", runErr)
	}
	return nil
}

func batchCommand(c *cli.Context) error {
	tenantId, err := parseTenant(c)
	if err != nil {
		return err
	}
	if c.String("id") == "" && tenantId == uuid.Nil {
		return fmt.Errorf("either --id or --tenant is required")
	}

	db, _, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	if id := c.String("id"); id != "" {
		batchId, err := uuid.Parse(id)
		if err != nil {
			return fmt.Errorf("invalid batch ID %q: %w", id, err)
		}
		batch, err := db.Batches().GetBatch(c.Context, batchId)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		printBatch(c, batch)
		return nil
	}

	batches, err := db.Batches().ListBatches(c.Context, tenantId)
	if err != nil {
		return fmt.Errorf("failed to list batches: %w", err)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tPROCESSED\tFAILED\tTOTAL\tCREATED")
	for _, b := range batches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", b.Id, b.Type, b.Status,
			b.ProcessedDocuments, b.FailedDocuments, b.TotalDocuments, b.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func printBatch(c *cli.Context, b *core.Batch) {
	out := c.App.Writer
	fmt.Fprintf(out, "Tenant: %s\n", b.TenantId)
	fmt.Fprintf(out, "Type: %s\n", b.Type)
	fmt.Fprintf(out, "Status: %s\n", b.Status)
	fmt.Fprintf(out, "Documents: %d processed, %d failed, %d total\n",
		b.ProcessedDocuments, b.FailedDocuments, b.TotalDocuments)
	fmt.Fprintf(out, "Failure rate: %.2f%%\n", b.Metrics.FailureRate*100)
	fmt.Fprintf(out, "Estimated cost: $%.4f\n", b.Metrics.EstimatedCostUSD)
	if b.ErrorMessage != "" {
		fmt.Fprintf(out, "Error: %s\n", b.ErrorMessage)
	}
}

func scanCommand(c *cli.Context) error {
	db, _, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := db.NewScanner(scanner.WithNames(c.Bool("names")), scanner.WithLimit(c.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	var results []*scanner.Result
	switch c.String("source") {
	case "vectors":
		results = append(results, s.ScanVectorRecords(c.Context))
	case "queries":
		results = append(results, s.ScanQueryLogs(c.Context))
	case "all":
		results = s.ScanAll(c.Context)
	default:
		return fmt.Errorf("invalid source %q: must be one of vectors, queries, all", c.String("source"))
	}

	violations := 0
	out := c.App.Writer
	for _, r := range results {
		fmt.Fprintf(out, "%s: %d scanned, %d violations\n", r.Source, r.Scanned, len(r.Violations))
		for _, v := range r.Violations {
			fmt.Fprintf(out, "  %s %s %s at offset %d (%s)\n", v.TenantId, v.RecordId, v.Category, v.Offset, v.Description)
		}
		if r.Err != nil {
			return fmt.Errorf("scan of %s failed: %w", r.Source, r.Err)
		}
		violations += len(r.Violations)
	}
	if violations > 0 {
		return cli.Exit(fmt.Sprintf("found %d PII violations", violations), 2)
	}
	return nil
}

func saltSetCommand(c *cli.Context) error {
	return rotateSalt(c, c.String("value"))
}

func saltRotateCommand(c *cli.Context) error {
	return rotateSalt(c, "")
}

func rotateSalt(c *cli.Context, value string) error {
	tenantId, err := parseTenant(c)
	if err != nil {
		return err
	}
	db, _, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	salt, err := db.Salts().Rotate(c.Context, tenantId, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Stored %s version %d\n", salt.Name, salt.Version)
	return nil
}

func saltShowCommand(c *cli.Context) error {
	tenantId, err := parseTenant(c)
	if err != nil {
		return err
	}
	db, _, err := openDatabase(c, false)
	if err != nil {
		return err
	}
	defer db.Close()

	salt, err := db.Salts().Salt(c.Context, tenantId)
	if err != nil {
		return err
	}
	out := c.App.Writer
	fmt.Fprintf(out, "Name: %s\n", salt.Name)
	fmt.Fprintf(out, "Version: %d\n", salt.Version)
	fmt.Fprintf(out, "Global: %t\n", salt.Global)
	if c.Bool("reveal") {
		fmt.Fprintf(out, "Value: %s\n", salt.Value)
	}
	return nil
}
